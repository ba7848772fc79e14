// Package storageprobe extracts the cookie and browser-storage state of a
// settled page: the session's live cookie jar via the CDP storage domain,
// and a read-only in-page probe for localStorage, IndexedDB, and service
// worker presence. It runs once per scan, after settle.
package storageprobe

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"

	"github.com/privacyscope/privacyscope/pkg/domains"
)

// Cookie is one distinct (name, domain) pair from the session's jar at
// collection time. Not updated afterward.
type Cookie struct {
	Name         string `json:"name"`
	Domain       string `json:"domain"`
	IsThirdParty bool   `json:"is_third_party"`

	// IsSession is true iff the cookie carries no expiry.
	IsSession bool       `json:"is_session"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Summary is the per-scan storage snapshot. The zero value is also what a
// failed probe reports — storage unknown, scan still completes.
type Summary struct {
	LocalStorageKeyCount int  `json:"local_storage_key_count"`
	IndexedDBPresent     bool `json:"indexed_db_present"`
	ServiceWorkerPresent bool `json:"service_worker_present"`
}

// CollectCookies reads the session's cookie jar and classifies each cookie
// against the scan root. Duplicate (name, domain) pairs collapse to one.
func CollectCookies(ctx context.Context, rootDomain string, catalog domains.TrackerSet) ([]Cookie, error) {
	raw, err := storage.GetCookies().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("storageprobe: get cookies: %w", err)
	}
	return ClassifyCookies(raw, rootDomain, catalog), nil
}

// ClassifyCookies converts raw CDP cookies to classified records, one per
// distinct (name, domain). Pure; exported for browser-free tests.
func ClassifyCookies(raw []*network.Cookie, rootDomain string, catalog domains.TrackerSet) []Cookie {
	seen := make(map[string]bool, len(raw))
	out := make([]Cookie, 0, len(raw))
	for _, c := range raw {
		key := c.Name + "\x00" + c.Domain
		if seen[key] {
			continue
		}
		seen[key] = true

		cls := domains.Classify(c.Domain, rootDomain, catalog)
		ck := Cookie{
			Name:         c.Name,
			Domain:       c.Domain,
			IsThirdParty: cls.IsThirdParty,
			IsSession:    c.Session || c.Expires <= 0,
		}
		if !ck.IsSession {
			t := time.Unix(int64(c.Expires), 0).UTC()
			ck.ExpiresAt = &t
		}
		out = append(out, ck)
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Domain != out[b].Domain {
			return out[a].Domain < out[b].Domain
		}
		return out[a].Name < out[b].Name
	})
	return out
}

// probeScript counts localStorage keys and detects IndexedDB databases and
// service worker registrations without mutating page state. Each field
// degrades independently: a page that blocks one API still reports the
// others.
const probeScript = `(async () => {
  const out = { ls: 0, idb: false, sw: false };
  try { out.ls = localStorage.length; } catch (e) {}
  try {
    if (indexedDB && indexedDB.databases) {
      const dbs = await indexedDB.databases();
      out.idb = dbs.length > 0;
    }
  } catch (e) {}
  try {
    if (navigator.serviceWorker) {
      const regs = await navigator.serviceWorker.getRegistrations();
      out.sw = regs.length > 0;
    }
  } catch (e) {}
  return JSON.stringify(out);
})()`

// Probe evaluates the storage probe inside the page. Callers treat an
// error as non-fatal and keep the zero Summary.
func Probe(ctx context.Context) (Summary, error) {
	var raw string
	err := chromedp.Evaluate(probeScript, &raw, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithAwaitPromise(true).WithReturnByValue(true)
	}).Do(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("storageprobe: evaluate probe: %w", err)
	}
	return ParseSummary(raw)
}

// ParseSummary decodes the probe script's JSON payload. Exported for
// browser-free tests.
func ParseSummary(raw string) (Summary, error) {
	var payload struct {
		LS  int  `json:"ls"`
		IDB bool `json:"idb"`
		SW  bool `json:"sw"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return Summary{}, fmt.Errorf("storageprobe: parse probe payload: %w", err)
	}
	return Summary{
		LocalStorageKeyCount: payload.LS,
		IndexedDBPresent:     payload.IDB,
		ServiceWorkerPresent: payload.SW,
	}, nil
}
