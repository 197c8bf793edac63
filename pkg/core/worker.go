/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: worker.go
Description: Worker decodes one capture at a time: parses it whole or scans for embedded
messages, then renders the debug dump. Workers are pooled by the engine and keep their own
counters.
*/

package core

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/kleascm/protodec/pkg/dump"
	"github.com/kleascm/protodec/pkg/scanner"
	"github.com/kleascm/protodec/pkg/wire"
)

// Worker decodes jobs
type Worker struct {
	ID int

	scan   scanner.Options
	shards int

	executions int64
	failures   int64
	startTime  time.Time
}

// NewWorker creates a worker. shards > 1 splits single-message scans across goroutines.
func NewWorker(id int, scan scanner.Options, shards int) *Worker {
	return &Worker{
		ID:        id,
		scan:      scan,
		shards:    shards,
		startTime: time.Now(),
	}
}

// Execute runs job and returns its result. Failures are reported in Result.Err.
func (w *Worker) Execute(ctx context.Context, job *Job) *Result {
	atomic.AddInt64(&w.executions, 1)
	start := time.Now()

	c := job.Capture
	result := &Result{
		JobID:     job.ID,
		CaptureID: c.ID.String(),
		Origin:    c.Origin,
		Digest:    c.Digest,
		Size:      c.Size(),
		Mode:      job.Mode,
	}

	spans, err := w.locate(ctx, job.Mode, c.Data)
	if err == nil {
		err = result.fill(c.Data, spans)
	}
	if err != nil {
		atomic.AddInt64(&w.failures, 1)
		result.Err = err
		result.Error = err.Error()
	}
	if result.Err == nil {
		result.Dump = renderDump(result)
	}
	result.Duration = time.Since(start)
	return result
}

// locate finds the byte ranges to decode.
func (w *Worker) locate(ctx context.Context, mode Mode, data []byte) ([]scanner.Span, error) {
	switch mode {
	case ModeDecode:
		return []scanner.Span{{Start: 0, End: len(data)}}, nil
	case ModeScan:
		var span scanner.Span
		var ok bool
		if w.shards > 1 {
			var err error
			span, ok, err = scanner.ScanParallel(ctx, data, w.shards, w.scan)
			if err != nil {
				return nil, err
			}
		} else {
			span, ok = scanner.Find(data, w.scan)
		}
		if !ok {
			return nil, ErrNoMessage
		}
		return []scanner.Span{span}, nil
	case ModeScanAll:
		spans := scanner.FindAll(data, w.scan)
		if len(spans) == 0 {
			return nil, ErrNoMessage
		}
		return spans, nil
	default:
		return nil, fmt.Errorf("unknown decode mode %q", mode)
	}
}

// fill parses each span of data into the result.
func (r *Result) fill(data []byte, spans []scanner.Span) error {
	r.Spans = spans
	r.Trees = make([]*wire.Tree, 0, len(spans))
	r.Payloads = make([][]byte, 0, len(spans))
	for _, s := range spans {
		if s.Start < 0 || s.End > len(data) || s.Start > s.End {
			return fmt.Errorf("span [%d, %d) outside %d byte capture", s.Start, s.End, len(data))
		}
		payload := data[s.Start:s.End:s.End]
		t, err := wire.Parse(payload)
		if err != nil {
			return err
		}
		r.Trees = append(r.Trees, t)
		r.Payloads = append(r.Payloads, payload)
	}
	return nil
}

func renderDump(r *Result) string {
	if len(r.Trees) == 1 && r.Mode != ModeScanAll {
		return dump.String(r.Trees[0])
	}
	var sb strings.Builder
	for i, t := range r.Trees {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "# message at [%d, %d)\n", r.Spans[i].Start, r.Spans[i].End)
		sb.WriteString(dump.String(t))
	}
	return sb.String()
}

// GetStats returns the worker's counters.
func (w *Worker) GetStats() map[string]interface{} {
	executions := atomic.LoadInt64(&w.executions)
	uptime := time.Since(w.startTime)
	stats := map[string]interface{}{
		"id":         w.ID,
		"executions": executions,
		"failures":   atomic.LoadInt64(&w.failures),
		"uptime":     uptime,
	}
	if uptime > 0 {
		stats["executions_per_sec"] = float64(executions) / uptime.Seconds()
	}
	return stats
}
