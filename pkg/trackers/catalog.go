// Package trackers provides the tracker catalog: a read-only set of known
// tracking domains consulted during domain classification. A bundled default
// catalog is embedded in the binary so scans work regardless of installation
// method; callers may load a replacement catalog from disk.
package trackers

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

//go:embed default.json
var defaultCatalogJSON []byte

// catalogFile is the on-disk / embedded JSON shape.
type catalogFile struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Domains     []string `json:"domains"`
}

// Catalog is an immutable set of tracker domains keyed by registrable
// domain. Built once at startup, read concurrently afterwards.
type Catalog struct {
	name    string
	domains map[string]struct{}
}

// Default returns the catalog bundled with the binary. The embedded data is
// validated at build time by the package tests, so a parse failure here
// means a corrupt binary and panics.
func Default() *Catalog {
	c, err := parse(defaultCatalogJSON)
	if err != nil {
		panic(fmt.Sprintf("trackers: embedded catalog corrupt: %v", err))
	}
	return c
}

// LoadFile reads a catalog from a JSON file. A missing, unreadable, or
// malformed file is a hard error: scanning with a silently empty catalog
// would mislabel every tracker as a plain third party.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("trackers: read catalog: %w", err)
	}
	c, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("trackers: catalog %s: %w", path, err)
	}
	return c, nil
}

func parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if len(f.Domains) == 0 {
		return nil, fmt.Errorf("catalog %q lists no domains", f.Name)
	}
	set := make(map[string]struct{}, len(f.Domains))
	for _, d := range f.Domains {
		d = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(d, ".")))
		if d == "" {
			continue
		}
		set[d] = struct{}{}
	}
	return &Catalog{name: f.Name, domains: set}, nil
}

// Name reports the catalog's self-declared name ("default" for the bundled
// set).
func (c *Catalog) Name() string { return c.name }

// Len reports the number of distinct tracker domains in the catalog.
func (c *Catalog) Len() int { return len(c.domains) }

// Contains reports whether domain is a known tracker. An exact entry
// matches, and so does any subdomain of an entry: "sub.doubleclick.net" is a
// tracker because "doubleclick.net" is listed. The reverse never holds — a
// listed subdomain does not taint its parent.
func (c *Catalog) Contains(domain string) bool {
	domain = strings.ToLower(strings.TrimSuffix(domain, "."))
	if domain == "" {
		return false
	}
	if _, ok := c.domains[domain]; ok {
		return true
	}
	// Walk up the label chain so entries match their subdomains.
	for {
		i := strings.IndexByte(domain, '.')
		if i < 0 {
			return false
		}
		domain = domain[i+1:]
		if _, ok := c.domains[domain]; ok {
			return true
		}
	}
}

// Domains returns the catalog entries in sorted order, for display and
// debugging. The returned slice is a copy.
func (c *Catalog) Domains() []string {
	out := make([]string, 0, len(c.domains))
	for d := range c.domains {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
