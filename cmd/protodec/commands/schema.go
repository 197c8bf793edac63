/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: schema.go
Description: Schema command. Decodes every input and merges all recovered messages into
one .proto schema, written to stdout or a file.
*/

package commands

import (
	"fmt"
	"os"

	"github.com/kleascm/protodec/pkg/core"
	"github.com/kleascm/protodec/pkg/inference"
	"github.com/spf13/cobra"
)

// RunSchema infers one schema across all inputs
func RunSchema(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	mode := core.ModeDecode
	if scan, _ := cmd.Flags().GetBool("scan"); scan {
		mode = core.ModeScanAll
	}

	sess, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	engine, err := sess.engine()
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}
	caps, err := readCaptures(ctx, args, sess.cfg, sess.logger)
	if err != nil {
		return err
	}
	results, err := engine.RunMode(ctx, caps, mode)
	if err != nil {
		return err
	}

	status := newConsole(cmd.ErrOrStderr())
	for _, r := range results {
		if r.Err != nil {
			status.Warn("skipping %s: %s", r.Origin, r.Error)
		}
	}

	schema, err := engine.InferAll(results)
	if err != nil {
		return fmt.Errorf("failed to infer schema: %w", err)
	}

	output, _ := cmd.Flags().GetString("output")
	if output == "" || output == "-" {
		return inference.Print(cmd.OutOrStdout(), schema)
	}
	if err := writeSchemaFile(output, schema); err != nil {
		return err
	}
	status.Success("%d messages written to %s", schema.Messages(), output)
	return nil
}

func writeSchemaFile(path string, schema *inference.Schema) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create schema file: %w", err)
	}
	if err := inference.Print(f, schema); err != nil {
		f.Close()
		return fmt.Errorf("failed to write schema: %w", err)
	}
	return f.Close()
}
