/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: report.go
Description: Report command. Runs decode and schema inference over the configured sources
and writes an HTML, JSON or YAML recovery report, a timestamped results artifact and the
recovered messages as binary files.
*/

package commands

import (
	"fmt"
	"path/filepath"

	"github.com/kleascm/protodec/pkg/reporting"
	"github.com/spf13/cobra"
)

// RunReport generates a recovery report
func RunReport(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	ui := newConsole(cmd.OutOrStdout())

	ui.Heading("🧬 protodec - Recovery Report")

	sess, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	format, _ := cmd.Flags().GetString("format")
	outputDir, _ := cmd.Flags().GetString("output")
	title, _ := cmd.Flags().GetString("title")

	engine, err := sess.engine()
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}
	caps, err := readCaptures(ctx, args, sess.cfg, sess.logger)
	if err != nil {
		return err
	}
	ui.Muted("%d captures collected", len(caps))

	results, err := engine.Run(ctx, caps)
	if err != nil {
		return err
	}

	schema, schemaErr := engine.InferAll(results)
	if schemaErr != nil {
		ui.Warn("no schema recovered: %v", schemaErr)
	}

	report := reporting.NewReport(title, results, schema, schemaErr, engine.Stats())
	path, err := reporting.NewGenerator(outputDir, sess.logger).Generate(report, format)
	if err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}
	ui.Success("report written to %s", path)

	artifact, err := reporting.WriteResult(outputDir, "results", reporting.Version, report)
	if err != nil {
		return err
	}
	ui.Success("results saved to %s", artifact)

	payloads, err := reporting.WritePayloads(outputDir, results)
	if err != nil {
		return err
	}
	if len(payloads) > 0 {
		ui.Success("%d messages saved to %s", len(payloads), filepath.Dir(payloads[0]))
	}

	printStats(ui, engine.Stats())
	return nil
}
