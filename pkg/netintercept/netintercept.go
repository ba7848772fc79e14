// Package netintercept observes a browser session's network event stream
// and aggregates per-domain counters for one scan. In the strict profile it
// additionally answers blocking decisions for paused requests.
//
// One Interceptor serves exactly one scan. Attach it before navigation —
// requests issued during first paint must not be missed.
package netintercept

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/privacyscope/privacyscope/pkg/domains"
)

// StrictConfig is the strict-profile blocking policy. The zero value blocks
// tracker domains only.
type StrictConfig struct {
	// BlockThirdParty extends blocking from catalog trackers to every
	// third-party domain not on the allowlist.
	BlockThirdParty bool `json:"block_third_party" yaml:"block_third_party"`

	// AllowlistDomains are registrable domains exempt from third-party
	// blocking. Entries match themselves and their subdomains. Trackers
	// are blocked regardless.
	AllowlistDomains []string `json:"allowlist_domains" yaml:"allowlist_domains"`
}

func (c StrictConfig) allowlisted(domain string) bool {
	for _, a := range c.AllowlistDomains {
		a = strings.ToLower(strings.TrimPrefix(a, "."))
		if domain == a || strings.HasSuffix(domain, "."+a) {
			return true
		}
	}
	return false
}

// DomainAggregate accumulates counters for one registrable domain over the
// lifetime of a scan. IsThirdParty and IsTracker are fixed at creation;
// they are pure functions of (domain, root) and never change afterward.
type DomainAggregate struct {
	Domain       string `json:"domain"`
	IsThirdParty bool   `json:"is_third_party"`
	IsTracker    bool   `json:"is_tracker"`
	RequestCount int    `json:"request_count"`
	TotalBytes   int64  `json:"total_bytes"`

	// BlockedCount is how many of RequestCount were denied by the strict
	// policy. Blocked requests contribute zero bytes.
	BlockedCount int `json:"blocked_count"`

	// ResourceBreakdown counts requests per resource-type bucket. Its
	// values always sum to RequestCount.
	ResourceBreakdown map[string]int `json:"resource_breakdown"`
}

// Resource-type buckets. Every CDP resource type maps onto one of these.
const (
	ResDocument   = "document"
	ResScript     = "script"
	ResStylesheet = "stylesheet"
	ResImage      = "image"
	ResFont       = "font"
	ResXHR        = "xhr"
	ResOther      = "other"
)

// BucketFor maps a CDP resource type to its aggregate bucket. Fetch and
// XHR share a bucket; everything unrecognized is "other".
func BucketFor(t network.ResourceType) string {
	switch t {
	case network.ResourceTypeDocument:
		return ResDocument
	case network.ResourceTypeScript:
		return ResScript
	case network.ResourceTypeStylesheet:
		return ResStylesheet
	case network.ResourceTypeImage:
		return ResImage
	case network.ResourceTypeFont:
		return ResFont
	case network.ResourceTypeXHR, network.ResourceTypeFetch:
		return ResXHR
	default:
		return ResOther
	}
}

// Interceptor aggregates one scan's network observations. Network events
// arrive on the session's event goroutine; strict-mode pause decisions
// arrive on short-lived goroutines. The mutex covers that overlap — there
// is no contention within a single stream.
type Interceptor struct {
	root    string
	catalog domains.TrackerSet
	strict  *StrictConfig

	mu         sync.Mutex
	aggregates map[string]*DomainAggregate
	// requestDomain correlates a RequestID to its aggregate key so the
	// response's byte size lands on the right domain without reparsing.
	requestDomain map[network.RequestID]string
}

// New builds an interceptor for one scan rooted at rootDomain. A nil
// strict config selects baseline behavior (observe only).
func New(rootDomain string, catalog domains.TrackerSet, strict *StrictConfig) *Interceptor {
	return &Interceptor{
		root:          rootDomain,
		catalog:       catalog,
		strict:        strict,
		aggregates:    make(map[string]*DomainAggregate),
		requestDomain: make(map[network.RequestID]string),
	}
}

// SetRoot updates the root domain classifications are made against. Called
// once, before navigation, when the engine resolves the target's final URL;
// aggregates created afterwards use the new root.
func (i *Interceptor) SetRoot(rootDomain string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.root = rootDomain
}

// Reclassify recomputes every existing aggregate's classification flags
// against a new root domain. Used once per scan, when a cross-domain
// redirect moves the root: the flags are pure functions of (domain, root),
// so a root change is the one legitimate reason to rewrite them. Counters
// are untouched.
func (i *Interceptor) Reclassify(rootDomain string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.root = rootDomain
	for _, agg := range i.aggregates {
		c := domains.Classify(agg.Domain, rootDomain, i.catalog)
		agg.IsThirdParty = c.IsThirdParty
		agg.IsTracker = c.IsTracker
	}
}

// Attach subscribes the interceptor to the session's event stream and, in
// strict mode, answers request pauses. The engine must still enable the
// network domain (and the fetch domain for strict) in its run actions.
func (i *Interceptor) Attach(ctx context.Context) {
	chromedp.ListenTarget(ctx, func(ev interface{}) {
		switch e := ev.(type) {
		case *network.EventRequestWillBeSent:
			i.HandleRequest(e)
		case *network.EventResponseReceived:
			i.HandleResponse(e)
		case *fetch.EventRequestPaused:
			// Resuming must not run on the event goroutine or the
			// websocket deadlocks.
			go i.resolvePause(ctx, e)
		}
	})
}

// EnableActions returns the CDP domain enables the interceptor needs,
// suitable for inclusion in the engine's pre-navigation chromedp.Run.
func (i *Interceptor) EnableActions() []chromedp.Action {
	actions := []chromedp.Action{network.Enable()}
	if i.strict != nil {
		actions = append(actions, fetch.Enable())
	}
	return actions
}

// HandleRequest records one observed request: classify, upsert the
// aggregate (first write wins on the classification flags), bump the
// request count and resource bucket. Blocked requests pass through here
// too — they are counted, just never receive bytes.
func (i *Interceptor) HandleRequest(e *network.EventRequestWillBeSent) {
	i.mu.Lock()
	defer i.mu.Unlock()

	agg := i.aggregate(e.Request.URL)
	agg.RequestCount++
	agg.ResourceBreakdown[BucketFor(e.Type)]++
	i.requestDomain[e.RequestID] = agg.Domain
}

// HandleResponse credits the response's encoded size to the aggregate the
// request was recorded under. Responses for unknown request ids (the
// listener attached mid-flight) are credited by reparsing the URL.
func (i *Interceptor) HandleResponse(e *network.EventResponseReceived) {
	i.mu.Lock()
	defer i.mu.Unlock()

	key, ok := i.requestDomain[e.RequestID]
	if !ok {
		key = domains.Classify(e.Response.URL, i.root, i.catalog).Domain
	}
	if agg, ok := i.aggregates[key]; ok {
		agg.TotalBytes += int64(e.Response.EncodedDataLength)
	}
}

// ShouldBlock is the strict-profile policy decision for one request URL:
// trackers always, third parties when configured and not allowlisted.
// Baseline interceptors never block.
func (i *Interceptor) ShouldBlock(requestURL string) bool {
	if i.strict == nil {
		return false
	}
	i.mu.Lock()
	root := i.root
	i.mu.Unlock()

	c := domains.Classify(requestURL, root, i.catalog)
	if c.IsTracker {
		return true
	}
	return i.strict.BlockThirdParty && c.IsThirdParty && !i.strict.allowlisted(c.Domain)
}

// MarkBlocked records that the strict policy denied a request to the given
// URL. The request itself was already counted by HandleRequest.
func (i *Interceptor) MarkBlocked(requestURL string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.aggregate(requestURL).BlockedCount++
}

// resolvePause continues or fails a paused request against the session's
// own executor.
func (i *Interceptor) resolvePause(ctx context.Context, e *fetch.EventRequestPaused) {
	c := chromedp.FromContext(ctx)
	ectx := cdp.WithExecutor(ctx, c.Target)

	if i.ShouldBlock(e.Request.URL) {
		i.MarkBlocked(e.Request.URL)
		_ = fetch.FailRequest(e.RequestID, network.ErrorReasonBlockedByClient).Do(ectx)
		return
	}
	_ = fetch.ContinueRequest(e.RequestID).Do(ectx)
}

// aggregate returns the entry for the URL's registrable domain, creating
// it on first sight. Callers hold the mutex.
func (i *Interceptor) aggregate(rawURL string) *DomainAggregate {
	c := domains.Classify(rawURL, i.root, i.catalog)
	agg, ok := i.aggregates[c.Domain]
	if !ok {
		agg = &DomainAggregate{
			Domain:            c.Domain,
			IsThirdParty:      c.IsThirdParty,
			IsTracker:         c.IsTracker,
			ResourceBreakdown: make(map[string]int),
		}
		i.aggregates[c.Domain] = agg
	}
	return agg
}

// Snapshot returns the aggregates sorted by domain. The returned slice and
// its breakdown maps are deep copies: the scan hands them off wholesale in
// its result while the live maps are discarded with the interceptor.
func (i *Interceptor) Snapshot() []DomainAggregate {
	i.mu.Lock()
	defer i.mu.Unlock()

	out := make([]DomainAggregate, 0, len(i.aggregates))
	for _, agg := range i.aggregates {
		cp := *agg
		cp.ResourceBreakdown = make(map[string]int, len(agg.ResourceBreakdown))
		for k, v := range agg.ResourceBreakdown {
			cp.ResourceBreakdown[k] = v
		}
		out = append(out, cp)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Domain < out[b].Domain })
	return out
}

// Totals derives the scan-level summary counters from the aggregates.
func (i *Interceptor) Totals() (requests int, bytes int64, thirdParty, trackers int) {
	i.mu.Lock()
	defer i.mu.Unlock()

	for _, agg := range i.aggregates {
		requests += agg.RequestCount
		bytes += agg.TotalBytes
		if agg.IsThirdParty {
			thirdParty++
		}
		if agg.IsTracker {
			trackers++
		}
	}
	return requests, bytes, thirdParty, trackers
}
