/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: parallel.go
Description: Sharded scanning. Start offsets are split into contiguous shards scanned by
separate goroutines over the same read-only buffer; the lowest hit across shards wins,
so the answer matches the sequential scan. Descriptors get a full pass before plain messages.
*/

package scanner

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ScanParallel is Find with the start offsets spread over shards goroutines.
// A shards value below 1 uses GOMAXPROCS.
func ScanParallel(ctx context.Context, buf []byte, shards int, opts Options) (Span, bool, error) {
	if shards < 1 {
		shards = runtime.GOMAXPROCS(0)
	}
	if shards > len(buf) {
		shards = len(buf)
	}
	if shards <= 1 {
		s, ok := Find(buf, opts)
		return s, ok, ctx.Err()
	}

	s, ok, err := scanShards(ctx, buf, shards, opts, DescriptorAt)
	if err != nil || ok {
		return s, ok, err
	}
	return scanShards(ctx, buf, shards, opts, LongestAt)
}

// scanShards runs at over every start offset and keeps the lowest hit.
func scanShards(ctx context.Context, buf []byte, shards int, opts Options, at func([]byte, int, Options) (Span, bool)) (Span, bool, error) {
	type hit struct {
		span Span
		ok   bool
	}
	hits := make([]hit, shards)
	width := (len(buf) + shards - 1) / shards

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < shards; i++ {
		lo := i * width
		hi := min(lo+width, len(buf))
		g.Go(func() error {
			for start := lo; start < hi; start++ {
				if start&0xff == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				if s, ok := at(buf, start, opts); ok {
					hits[i] = hit{span: s, ok: true}
					return nil
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Span{}, false, err
	}

	for _, h := range hits {
		if h.ok {
			return h.span, true, nil
		}
	}
	return Span{}, false, nil
}
