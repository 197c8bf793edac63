/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: main.go
Description: Main command-line interface for protodec. Builds the command tree, binds
flags to configuration keys and dispatches to the command implementations.
*/

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/kleascm/protodec/cmd/protodec/commands"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Configuration
	configFile string
	logLevel   string
	logFormat  string
	logDir     string
	jsonLogs   bool
	noColor    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "protodec",
		Short: "protodec - Protocol Buffers schema recovery",
		Long: `protodec decodes Protocol Buffers wire data without a schema. It prints the
structure of captured messages, finds messages embedded in larger buffers, and recovers a
.proto schema from samples, using real names when the input is a serialized descriptor.`,
		Version:       commands.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Logging level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "custom", "Log format (text, json, custom)")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "Also write logs to this directory")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "Use JSON log format")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().String("input-format", "bin", "Capture encoding (bin, hex, base64, json)")
	rootCmd.PersistentFlags().Int("workers", 4, "Number of parallel decode workers")
	rootCmd.PersistentFlags().Int("min-size", 1, "Smallest embedded message to report, in bytes")

	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("log.output_dir", rootCmd.PersistentFlags().Lookup("log-dir"))
	viper.BindPFlag("json_logs", rootCmd.PersistentFlags().Lookup("json-logs"))
	viper.BindPFlag("no_color", rootCmd.PersistentFlags().Lookup("no-color"))
	viper.BindPFlag("capture.format", rootCmd.PersistentFlags().Lookup("input-format"))
	viper.BindPFlag("engine.workers", rootCmd.PersistentFlags().Lookup("workers"))
	viper.BindPFlag("scan.min_size", rootCmd.PersistentFlags().Lookup("min-size"))

	// decode
	decodeCmd := &cobra.Command{
		Use:   "decode [files...]",
		Short: "Print the wire structure of each capture",
		Long: `Parse each capture as a Protocol Buffers message and print its debug tree.
With no arguments the sources from the configuration file are used.`,
		RunE: commands.RunDecode,
	}
	decodeCmd.Flags().Bool("scan", false, "Locate the embedded message before decoding")
	decodeCmd.Flags().Bool("all", false, "Decode every embedded message")
	rootCmd.AddCommand(decodeCmd)

	// scan
	scanCmd := &cobra.Command{
		Use:   "scan [files...]",
		Short: "Find messages embedded in larger buffers",
		Long: `Search each capture for byte ranges that parse as complete messages and print
one line per range. --first keeps only the first and longest match, which can be split
across goroutines with --shards.`,
		RunE: commands.RunScan,
	}
	scanCmd.Flags().Bool("first", false, "Only report the first embedded message")
	scanCmd.Flags().Int("shards", 0, "Split a single-message search across this many goroutines")
	viper.BindPFlag("scan.shards", scanCmd.Flags().Lookup("shards"))
	rootCmd.AddCommand(scanCmd)

	// schema
	schemaCmd := &cobra.Command{
		Use:   "schema [files...]",
		Short: "Recover a .proto schema from captures",
		Long: `Decode every capture and merge the recovered messages into one schema. Inputs
that are serialized descriptors keep their real names in descriptor mode.`,
		RunE: commands.RunSchema,
	}
	schemaCmd.Flags().String("mode", "auto", "Inference mode (auto, structural, descriptor)")
	schemaCmd.Flags().String("package", "ProtodecMessages", "Package name for synthesized schemas")
	schemaCmd.Flags().StringP("output", "o", "", "Write the schema to this file instead of stdout")
	schemaCmd.Flags().Bool("scan", false, "Use every embedded message as a sample")
	viper.BindPFlag("inference.mode", schemaCmd.Flags().Lookup("mode"))
	viper.BindPFlag("inference.package", schemaCmd.Flags().Lookup("package"))
	rootCmd.AddCommand(schemaCmd)

	// report
	reportCmd := &cobra.Command{
		Use:   "report [sources...]",
		Short: "Generate a recovery report",
		Long: `Run decode and schema inference over the given or configured sources and write
an HTML, JSON or YAML report with every capture, its messages and the recovered schema.`,
		RunE: commands.RunReport,
	}
	reportCmd.Flags().String("format", "html", "Report format (html, json, yaml)")
	reportCmd.Flags().String("output", "./protodec_report", "Output directory for report files")
	reportCmd.Flags().String("title", "protodec Recovery Report", "Report title")
	rootCmd.AddCommand(reportCmd)

	// watch
	watchCmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Decode files as they appear in a directory",
		Args:  cobra.ExactArgs(1),
		RunE:  commands.RunWatch,
	}
	watchCmd.Flags().Duration("debounce", 250*time.Millisecond, "Wait for writes to settle before decoding")
	rootCmd.AddCommand(watchCmd)

	// serve
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP decode service",
		Long: `Serve POST /v1/decode and POST /v1/schema, with health and Prometheus metrics
endpoints, until interrupted.`,
		RunE: commands.RunServe,
	}
	serveCmd.Flags().String("addr", "127.0.0.1:8088", "Listen address")
	serveCmd.Flags().Bool("metrics", true, "Expose /metrics")
	viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	viper.BindPFlag("server.metrics", serveCmd.Flags().Lookup("metrics"))
	rootCmd.AddCommand(serveCmd)

	// config
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration files",
	}
	configInitCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the default configuration template",
		Args:  cobra.MaximumNArgs(1),
		RunE:  commands.RunConfigInit,
	}
	configInitCmd.Flags().Bool("force", false, "Overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE:  commands.RunConfigShow,
	})
	rootCmd.AddCommand(configCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
