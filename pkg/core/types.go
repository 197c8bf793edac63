/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: types.go
Description: Core types for the protodec decode engine: jobs, decode modes, results and
run statistics. Statistics use atomic counters so workers update them without locks.
*/

package core

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/kleascm/protodec/pkg/capture"
	"github.com/kleascm/protodec/pkg/scanner"
	"github.com/kleascm/protodec/pkg/wire"
)

// Mode selects how a capture is decoded
type Mode string

const (
	// ModeDecode parses the whole capture as one message.
	ModeDecode Mode = "decode"
	// ModeScan locates the embedded message first.
	ModeScan Mode = "scan"
	// ModeScanAll decodes every embedded message.
	ModeScanAll Mode = "scan-all"
)

// ErrNoMessage is returned when scanning finds no embedded message.
var ErrNoMessage = errors.New("core: no embedded message found")

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeDecode, ModeScan, ModeScanAll:
		return m, nil
	case "":
		return ModeDecode, nil
	default:
		return "", fmt.Errorf("unknown decode mode %q", s)
	}
}

// Job is one capture to decode
type Job struct {
	ID      string
	Capture *capture.Capture
	Mode    Mode
}

// Result is the outcome of a Job
type Result struct {
	JobID     string         `json:"job_id" yaml:"job_id"`
	CaptureID string         `json:"capture_id" yaml:"capture_id"`
	Origin    string         `json:"origin" yaml:"origin"`
	Digest    string         `json:"digest" yaml:"digest"`
	Size      int            `json:"size" yaml:"size"`
	Mode      Mode           `json:"mode" yaml:"mode"`
	Spans     []scanner.Span `json:"spans,omitempty" yaml:"spans,omitempty"`
	Dump      string         `json:"dump,omitempty" yaml:"dump,omitempty"`
	Error     string         `json:"error,omitempty" yaml:"error,omitempty"`
	Duration  time.Duration  `json:"duration" yaml:"duration"`
	Cached    bool           `json:"cached" yaml:"cached"`

	// Trees holds one parsed message per span; Payloads the matching bytes.
	Trees    []*wire.Tree `json:"-" yaml:"-"`
	Payloads [][]byte     `json:"-" yaml:"-"`
	Err      error        `json:"-" yaml:"-"`
}

// OK reports whether the job produced at least one message.
func (r *Result) OK() bool { return r.Err == nil && len(r.Trees) > 0 }

// Stats tracks engine activity
type Stats struct {
	captures  int64
	decoded   int64
	spans     int64
	failures  int64
	cacheHits int64
	startTime time.Time
}

// NewStats starts a statistics window now.
func NewStats() *Stats { return &Stats{startTime: time.Now()} }

func (s *Stats) addCapture()    { atomic.AddInt64(&s.captures, 1) }
func (s *Stats) addDecoded()    { atomic.AddInt64(&s.decoded, 1) }
func (s *Stats) addSpans(n int) { atomic.AddInt64(&s.spans, int64(n)) }
func (s *Stats) addFailure()    { atomic.AddInt64(&s.failures, 1) }
func (s *Stats) addCacheHit()   { atomic.AddInt64(&s.cacheHits, 1) }

// StatsSnapshot is a point-in-time copy of Stats
type StatsSnapshot struct {
	Captures  int64         `json:"captures" yaml:"captures"`
	Unique    int64         `json:"unique" yaml:"unique"`
	Decoded   int64         `json:"decoded" yaml:"decoded"`
	Spans     int64         `json:"spans" yaml:"spans"`
	Failures  int64         `json:"failures" yaml:"failures"`
	CacheHits int64         `json:"cache_hits" yaml:"cache_hits"`
	Uptime    time.Duration `json:"uptime" yaml:"uptime"`
}

// Snapshot reads every counter.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Captures:  atomic.LoadInt64(&s.captures),
		Decoded:   atomic.LoadInt64(&s.decoded),
		Spans:     atomic.LoadInt64(&s.spans),
		Failures:  atomic.LoadInt64(&s.failures),
		CacheHits: atomic.LoadInt64(&s.cacheHits),
		Uptime:    time.Since(s.startTime),
	}
}
