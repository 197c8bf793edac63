/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: serve.go
Description: Serve command. Runs the HTTP decode service with Prometheus metrics on a
private registry until interrupted.
*/

package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kleascm/protodec/pkg/core"
	"github.com/kleascm/protodec/pkg/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

// RunServe starts the HTTP service
func RunServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	engine, err := sess.engine(core.WithReporter(core.NewPrometheusReporter(registry)))
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}

	ui := newConsole(cmd.OutOrStdout())
	ui.Heading("🚀 protodec - HTTP Service")
	ui.Muted("listening on http://%s", sess.cfg.Server.Addr)
	if sess.cfg.Server.Metrics {
		ui.Muted("metrics at http://%s/metrics", sess.cfg.Server.Addr)
	}

	if err := server.New(sess.cfg.Server, engine, registry, sess.logger).Run(ctx); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	printStats(ui, engine.Stats())
	return nil
}
