/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: file.go
Description: FileSource reads captures from a local file, every file under a directory,
or an http(s) URL, decoding each according to its payload format.
*/

package capture

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// FileSource reads captures from a path or URL
type FileSource struct {
	Location string
	Format   string
	Timeout  time.Duration
	MaxSize  int64
}

// NewFileSource creates a FileSource for a path, directory or http(s) URL.
func NewFileSource(location, format string, timeout time.Duration, maxSize int64) *FileSource {
	return &FileSource{
		Location: location,
		Format:   format,
		Timeout:  timeout,
		MaxSize:  maxSize,
	}
}

func (s *FileSource) Name() string { return "file" }

func (s *FileSource) Description() string {
	return fmt.Sprintf("%s captures from %s", formatName(s.Format), s.Location)
}

func formatName(f string) string {
	if f == "" {
		return FormatBinary
	}
	return f
}

// Fetch reads and decodes every payload at Location.
func (s *FileSource) Fetch(ctx context.Context) ([]*Capture, error) {
	if isHTTP(s.Location) {
		raw, err := fetchHTTP(ctx, &http.Client{Timeout: s.Timeout}, s.Location, s.MaxSize)
		if err != nil {
			return nil, err
		}
		return s.decode(s.Location, raw)
	}

	info, err := os.Stat(s.Location)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture: %w", err)
	}
	if !info.IsDir() {
		raw, err := s.readFile(s.Location)
		if err != nil {
			return nil, err
		}
		return s.decode(s.Location, raw)
	}

	dedup := newDeduper()
	var out []*Capture
	err = filepath.WalkDir(s.Location, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		raw, err := s.readFile(path)
		if err != nil {
			return err
		}
		caps, err := s.decode(path, raw)
		if err != nil {
			return err
		}
		for _, c := range caps {
			if dedup.unique(c) {
				out = append(out, c)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *FileSource) readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture: %w", err)
	}
	defer f.Close()
	data, err := readLimited(f, s.MaxSize)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return data, nil
}

func (s *FileSource) decode(origin string, raw []byte) ([]*Capture, error) {
	payloads, err := Decode(s.Format, raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", origin, err)
	}
	out := make([]*Capture, 0, len(payloads))
	for i, p := range payloads {
		o := origin
		if len(payloads) > 1 {
			o = fmt.Sprintf("%s#%d", origin, i)
		}
		out = append(out, New(s.Name(), o, p))
	}
	return out, nil
}
