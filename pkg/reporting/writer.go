/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: writer.go
Description: Writes timestamped JSON artifacts under <dir>/<kind>/ for later comparison
between runs, and the recovered messages as canonical binary files.
*/

package reporting

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kleascm/protodec/pkg/core"
	"github.com/kleascm/protodec/pkg/wire"
)

// WriteResult writes v as indented JSON to <dir>/<kind>/<timestamp>_<kind>_v<version>.json.
func WriteResult(dir, kind, version string, v interface{}) (string, error) {
	outDir := filepath.Join(dir, kind)
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create results directory: %w", err)
	}

	// 2024-06-11_01-30-00.000_schema_v1.0.0.json
	timestamp := time.Now().Format("2006-01-02_15-04-05.000")
	path := filepath.Join(outDir, fmt.Sprintf("%s_%s_v%s.json", timestamp, kind, version))

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal result: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write result file: %w", err)
	}
	return path, nil
}

// WritePayloads re-encodes every message recovered in results and writes each
// one to <dir>/payloads/<digest>_<n>.pb, where n counts messages within a
// capture from 1. The files can be fed to protoc --decode together with the
// recovered schema. It returns the written paths.
func WritePayloads(dir string, results []*core.Result) ([]string, error) {
	outDir := filepath.Join(dir, "payloads")
	var paths []string
	for _, r := range results {
		if r == nil || !r.OK() {
			continue
		}
		if err := os.MkdirAll(outDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create payloads directory: %w", err)
		}
		for i, tree := range r.Trees {
			path := filepath.Join(outDir, fmt.Sprintf("%s_%d.pb", shortDigest(r.Digest), i+1))
			if err := os.WriteFile(path, wire.Encode(tree.Fields()), 0644); err != nil {
				return paths, fmt.Errorf("failed to write payload: %w", err)
			}
			paths = append(paths, path)
		}
	}
	return paths, nil
}

func shortDigest(d string) string {
	if d == "" {
		return "capture"
	}
	if len(d) > 12 {
		return d[:12]
	}
	return d
}
