/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: store_test.go
Description: Tests for the badger result cache using in-memory and on-disk databases.
*/

package store

import (
	"context"
	"testing"
	"time"

	"github.com/kleascm/protodec/pkg/scanner"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGet(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	key := Key("scan", "abc123")
	assert.Equal(t, "scan:abc123", key)

	rec := &Record{
		CaptureID: "c1",
		Mode:      "scan",
		Spans:     []scanner.Span{{Start: 98, End: 397}},
		Dump:      "1: \"tutorial\"\n",
	}
	require.NoError(t, s.Put(ctx, key, rec))

	got, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, key, got.Key)
	assert.Equal(t, rec.Spans, got.Spans)
	assert.Equal(t, rec.Dump, got.Dump)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestGetMissing(t *testing.T) {
	s := openMemory(t)
	_, err := s.Get(context.Background(), "decode:none")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteAndList(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, Key("decode", "a"), &Record{Mode: "decode"}))
	require.NoError(t, s.Put(ctx, Key("decode", "b"), &Record{Mode: "decode"}))
	require.NoError(t, s.Put(ctx, Key("scan", "a"), &Record{Mode: "scan"}))

	recs, err := s.List(ctx, "decode:")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "decode:a", recs[0].Key)

	require.NoError(t, s.Delete(ctx, "decode:a"))
	_, err = s.Get(ctx, "decode:a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCanceledContext(t *testing.T) {
	s := openMemory(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Put(ctx, "k", &Record{}), context.Canceled)
	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPersistentReopen(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(dir)
	cfg.GCInterval = time.Hour
	cfg.Logger = logrus.New()

	s, err := Open(cfg)
	require.NoError(t, err)
	require.NoError(t, s.Put(context.Background(), "decode:x", &Record{Dump: "1: 150\n"}))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	s, err = Open(cfg)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get(context.Background(), "decode:x")
	require.NoError(t, err)
	assert.Equal(t, "1: 150\n", got.Dump)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)
}
