// Package artifact is the handoff boundary for scan byproducts. The engine
// hands bytes and a kind to a Sink keyed by scan id; whether and where they
// persist is the sink's business — the engine never verifies storage.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"
)

// Kind labels what an artifact's bytes contain.
type Kind string

const (
	KindScreenshot  Kind = "screenshot"
	KindNetworkLog  Kind = "network_log"
	KindStorageDump Kind = "storage_dump"
)

// ext maps kinds to file extensions for filesystem sinks.
var ext = map[Kind]string{
	KindScreenshot:  "png",
	KindNetworkLog:  "json",
	KindStorageDump: "json",
}

// Sink accepts artifacts. Implementations must tolerate duplicate stores
// for the same (scanID, kind) — last write wins.
type Sink interface {
	Store(scanID string, kind Kind, data []byte) error
}

// Discard drops everything. The engine's default when the caller wants no
// artifacts.
type Discard struct{}

func (Discard) Store(string, Kind, []byte) error { return nil }

// Dir stores artifacts as files under a base directory, named
// <scanID>.<kind>.<ext>.
type Dir struct {
	Base string
}

// NewDir creates the base directory if needed and returns a filesystem
// sink rooted there.
func NewDir(base string) (*Dir, error) {
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("artifact: create dir: %w", err)
	}
	return &Dir{Base: base}, nil
}

// Store writes the artifact file. Scan ids come from the caller and are
// sanitized to their base name so a hostile id cannot escape the base
// directory.
func (d *Dir) Store(scanID string, kind Kind, data []byte) error {
	e, ok := ext[kind]
	if !ok {
		return fmt.Errorf("artifact: unknown kind %q", kind)
	}
	name := fmt.Sprintf("%s.%s.%s", filepath.Base(scanID), kind, e)
	path := filepath.Join(d.Base, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("artifact: write %s: %w", name, err)
	}
	return nil
}
