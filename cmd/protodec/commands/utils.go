/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: utils.go
Description: Shared utilities for the protodec commands. Provides configuration loading,
logging setup, session wiring of store, telemetry and engine, capture reading and
console styling used across all command implementations.
*/

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/kleascm/protodec/pkg/capture"
	"github.com/kleascm/protodec/pkg/config"
	"github.com/kleascm/protodec/pkg/core"
	"github.com/kleascm/protodec/pkg/logging"
	"github.com/kleascm/protodec/pkg/store"
	"github.com/kleascm/protodec/pkg/telemetry"
	"github.com/mattn/go-isatty"
	"github.com/spf13/viper"
)

// Version is reported by the root command and stamped into telemetry.
const Version = "1.0.0"

// LoadConfig loads configuration from the --config file, environment and bound flags
func LoadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper(), viper.GetString("config"))
	if err != nil {
		return nil, err
	}
	if viper.GetBool("json_logs") {
		cfg.Log.Format = logging.LogFormatJSON
	}
	if viper.GetBool("no_color") {
		cfg.Log.Colors = false
	}
	return cfg, nil
}

// SetupLogging builds the logger from cfg and installs it as the package default.
// Logs always go to stderr so stdout stays clean for dumps and schemas.
func SetupLogging(cfg *config.Config) (*logging.Logger, error) {
	logger, err := logging.NewLogger(&cfg.Log, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to setup logging: %w", err)
	}
	logging.SetDefault(logger)
	return logger, nil
}

// session holds everything a command needs to run the engine
type session struct {
	cfg      *config.Config
	logger   *logging.Logger
	store    *store.Store
	shutdown func(context.Context) error
}

// openSession loads config and brings up logging, tracing and the result store.
func openSession(ctx context.Context) (*session, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger, err := SetupLogging(cfg)
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, logger: logger}

	s.shutdown, err = telemetry.Init(ctx, telemetry.Config{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: Version,
		Exporter:       cfg.Telemetry.Exporter,
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	if cfg.Store.Enabled() {
		storeCfg := store.DefaultConfig(cfg.Store.Path)
		if cfg.Store.InMemory {
			storeCfg = store.InMemoryConfig()
		}
		storeCfg.TTL = cfg.Store.TTL
		storeCfg.Logger = logger.GetLogger()
		s.store, err = store.Open(storeCfg)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to open result store: %w", err)
		}
	}
	return s, nil
}

// engine builds a decode engine wired to the session's store and logger.
func (s *session) engine(opts ...core.Option) (*core.Engine, error) {
	engineCfg, err := core.EngineConfigFrom(s.cfg)
	if err != nil {
		return nil, err
	}
	opts = append([]core.Option{
		core.WithLogger(s.logger),
		core.WithReporter(core.NewLoggerReporter(s.logger)),
	}, opts...)
	if s.store != nil {
		opts = append(opts, core.WithStore(s.store))
	}
	return core.NewEngine(engineCfg, opts...)
}

// Close flushes traces and releases the store and log file.
func (s *session) Close() {
	if s.shutdown != nil {
		if err := s.shutdown(context.Background()); err != nil {
			s.logger.Warning("Telemetry shutdown failed", map[string]interface{}{"error": err.Error()})
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warning("Result store close failed", map[string]interface{}{"error": err.Error()})
		}
	}
	s.logger.Close()
}

// readCaptures collects captures from args, or from the configured sources when
// args is empty. Partial failures are logged; only an empty result is fatal.
func readCaptures(ctx context.Context, args []string, cfg *config.Config, logger *logging.Logger) ([]*capture.Capture, error) {
	var sources []capture.Source
	if len(args) == 0 {
		built, err := capture.BuildSources(cfg.Capture)
		if err != nil {
			return nil, fmt.Errorf("no inputs given and %w", err)
		}
		sources = built
	}
	for _, arg := range args {
		src, err := capture.BuildSource(arg, cfg.Capture)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}

	caps, err := capture.Collect(ctx, sources, logger)
	if err != nil {
		if len(caps) == 0 || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("failed to read captures: %w", err)
		}
		logger.Warning("Some captures could not be read", map[string]interface{}{"error": err.Error()})
	}
	if len(caps) == 0 {
		return nil, fmt.Errorf("no captures found")
	}
	return caps, nil
}

var (
	colorAccent  = lipgloss.Color("#20B9B4")
	colorSuccess = lipgloss.Color("#2CD7C7")
	colorWarning = lipgloss.Color("#F4D03F")
	colorError   = lipgloss.Color("#E74C3C")
	colorMuted   = lipgloss.Color("#2C4A54")
)

// console writes styled status text. Styling is dropped when w is not a terminal.
type console struct {
	w      io.Writer
	styled bool

	title   lipgloss.Style
	muted   lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	failure lipgloss.Style
}

func newConsole(w io.Writer) *console {
	styled := false
	if f, ok := w.(*os.File); ok && !viper.GetBool("no_color") {
		styled = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &console{
		w:       w,
		styled:  styled,
		title:   lipgloss.NewStyle().Bold(true).Foreground(colorAccent),
		muted:   lipgloss.NewStyle().Foreground(colorMuted),
		success: lipgloss.NewStyle().Foreground(colorSuccess),
		warning: lipgloss.NewStyle().Foreground(colorWarning),
		failure: lipgloss.NewStyle().Foreground(colorError),
	}
}

func (c *console) render(style lipgloss.Style, s string) string {
	if !c.styled {
		return s
	}
	return style.Render(s)
}

// Heading prints a title line with an underline.
func (c *console) Heading(title string) {
	fmt.Fprintln(c.w, c.render(c.title, title))
	fmt.Fprintln(c.w, c.render(c.muted, strings.Repeat("=", len([]rune(title)))))
}

func (c *console) Success(format string, args ...interface{}) {
	fmt.Fprintln(c.w, c.render(c.success, "✓ "+fmt.Sprintf(format, args...)))
}

func (c *console) Warn(format string, args ...interface{}) {
	fmt.Fprintln(c.w, c.render(c.warning, "⚠ "+fmt.Sprintf(format, args...)))
}

func (c *console) Fail(format string, args ...interface{}) {
	fmt.Fprintln(c.w, c.render(c.failure, "✗ "+fmt.Sprintf(format, args...)))
}

func (c *console) Muted(format string, args ...interface{}) {
	fmt.Fprintln(c.w, c.render(c.muted, fmt.Sprintf(format, args...)))
}

// printStats writes the engine counters.
func printStats(c *console, snap core.StatsSnapshot) {
	c.Muted("captures=%d unique=%d decoded=%d failed=%d messages=%d cache_hits=%d elapsed=%s",
		snap.Captures, snap.Unique, snap.Decoded, snap.Failures, snap.Spans, snap.CacheHits, snap.Uptime.Round(time.Millisecond))
}
