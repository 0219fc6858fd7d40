// Package discovery provides the file-backed target discovery adapter.
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/tidwall/jsonc"

	"github.com/avalette/credgate/internal/domain/model"
	"github.com/avalette/credgate/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.TargetDiscovery = (*FileDiscovery)(nil)

// FileDiscovery reads the set of discoverable targets from a JSON file
// (comments and trailing commas tolerated). The file is re-read on every
// call, giving each caller an independent snapshot; edits to the file are
// visible to the next call without a restart.
type FileDiscovery struct {
	path   string
	logger *slog.Logger
}

// fileTarget is the on-disk target shape.
type fileTarget struct {
	ConnectURL  string            `json:"connectUrl"`
	Alias       string            `json:"alias"`
	Labels      map[string]string `json:"labels"`
	Annotations map[string]string `json:"annotations"`
}

// NewFileDiscovery creates a FileDiscovery reading from path.
func NewFileDiscovery(path string, logger *slog.Logger) *FileDiscovery {
	return &FileDiscovery{path: path, logger: logger}
}

// ListTargets returns the current snapshot of discoverable targets. A missing
// file means nothing has been discovered yet, not an error. Entries without a
// connect URL are skipped; duplicate connect URLs keep the first occurrence
// so target identities stay unique.
func (d *FileDiscovery) ListTargets(_ context.Context) ([]model.Target, error) {
	data, err := os.ReadFile(d.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read targets file: %w", err)
	}

	var entries []fileTarget
	if err := json.Unmarshal(jsonc.ToJSON(data), &entries); err != nil {
		return nil, fmt.Errorf("parse targets file %s: %w", d.path, err)
	}

	seen := make(map[string]bool, len(entries))
	targets := make([]model.Target, 0, len(entries))
	for _, e := range entries {
		if e.ConnectURL == "" {
			d.logger.Warn("skipping target without connect url", "file", d.path)
			continue
		}
		if seen[e.ConnectURL] {
			d.logger.Warn("skipping duplicate target", "connect_url", e.ConnectURL)
			continue
		}
		seen[e.ConnectURL] = true
		targets = append(targets, model.Target{
			ConnectURL:  e.ConnectURL,
			Alias:       e.Alias,
			Labels:      e.Labels,
			Annotations: e.Annotations,
		})
	}

	return targets, nil
}
