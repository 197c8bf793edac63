/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: decode.go
Description: Decode and scan commands. Decode prints the debug tree of each capture;
scan prints the byte ranges of the embedded messages found in each capture.
*/

package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/kleascm/protodec/pkg/core"
	"github.com/spf13/cobra"
)

// RunDecode parses each capture and prints its debug tree
func RunDecode(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	mode := core.ModeDecode
	if scan, _ := cmd.Flags().GetBool("scan"); scan {
		mode = core.ModeScan
	}
	if all, _ := cmd.Flags().GetBool("all"); all {
		mode = core.ModeScanAll
	}

	results, sess, err := runCaptures(ctx, args, mode)
	if err != nil {
		return err
	}
	defer sess.Close()

	out := cmd.OutOrStdout()
	status := newConsole(cmd.ErrOrStderr())
	failed := writeDumps(out, status, results)
	return failureError(failed, len(results))
}

// RunScan prints every embedded message span in each capture
func RunScan(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	mode := core.ModeScanAll
	if first, _ := cmd.Flags().GetBool("first"); first {
		mode = core.ModeScan
	}

	results, sess, err := runCaptures(ctx, args, mode)
	if err != nil {
		return err
	}
	defer sess.Close()

	out := cmd.OutOrStdout()
	status := newConsole(cmd.ErrOrStderr())
	failed := writeSpans(out, status, results)
	return failureError(failed, len(results))
}

// runCaptures opens a session, reads the inputs and decodes them in mode.
// The caller closes the returned session.
func runCaptures(ctx context.Context, args []string, mode core.Mode) ([]*core.Result, *session, error) {
	sess, err := openSession(ctx)
	if err != nil {
		return nil, nil, err
	}
	engine, err := sess.engine()
	if err != nil {
		sess.Close()
		return nil, nil, fmt.Errorf("failed to create engine: %w", err)
	}
	caps, err := readCaptures(ctx, args, sess.cfg, sess.logger)
	if err != nil {
		sess.Close()
		return nil, nil, err
	}
	results, err := engine.RunMode(ctx, caps, mode)
	if err != nil {
		sess.Close()
		return nil, nil, err
	}
	return results, sess, nil
}

// writeDumps prints each decoded tree to out and each failure to status.
// Headings are only added when there is more than one capture.
func writeDumps(out io.Writer, status *console, results []*core.Result) int {
	failed := 0
	for i, r := range results {
		if r.Err != nil {
			failed++
			status.Fail("%s: %s", r.Origin, r.Error)
			continue
		}
		if len(results) > 1 {
			if i > 0 {
				fmt.Fprintln(out)
			}
			fmt.Fprintf(out, "# %s\n", r.Origin)
		}
		fmt.Fprint(out, r.Dump)
	}
	return failed
}

// writeSpans prints one line per embedded message.
func writeSpans(out io.Writer, status *console, results []*core.Result) int {
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			status.Fail("%s: %s", r.Origin, r.Error)
			continue
		}
		for _, s := range r.Spans {
			fmt.Fprintf(out, "%s\t[%d, %d)\t%d bytes\n", r.Origin, s.Start, s.End, s.Len())
		}
	}
	return failed
}

func failureError(failed, total int) error {
	if failed == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d captures failed to decode", failed, total)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
