package scan

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/privacyscope/privacyscope/pkg/artifact"
	"github.com/privacyscope/privacyscope/pkg/domains"
	"github.com/privacyscope/privacyscope/pkg/duration"
	"github.com/privacyscope/privacyscope/pkg/fingerprint"
	"github.com/privacyscope/privacyscope/pkg/netintercept"
	"github.com/privacyscope/privacyscope/pkg/score"
	"github.com/privacyscope/privacyscope/pkg/storageprobe"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Options configures an Engine. The zero value is usable: headless Chrome,
// default timeouts, artifacts discarded.
type Options struct {
	// Timeout bounds one full scan. Defaults to duration.ScanTotal.
	Timeout time.Duration

	// NavigationTimeout bounds the initial navigation. Defaults to
	// duration.Navigation.
	NavigationTimeout time.Duration

	// UserAgent overrides the browser's user agent string.
	UserAgent string

	// Headful disables headless mode, for local debugging.
	Headful bool

	// Artifacts receives the screenshot and network log. Nil discards.
	Artifacts artifact.Sink
}

// Engine runs scans. It is stateless across invocations except for the
// shared read-only tracker catalog, so one Engine serves any number of
// sequential or concurrent scans; each Run owns its browser context and
// aggregates exclusively.
type Engine struct {
	catalog domains.TrackerSet
	opts    Options
}

// NewEngine builds an engine around a tracker catalog.
func NewEngine(catalog domains.TrackerSet, opts Options) *Engine {
	if opts.Timeout <= 0 {
		opts.Timeout = duration.ScanTotal
	}
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = duration.Navigation
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.Artifacts == nil {
		opts.Artifacts = artifact.Discard{}
	}
	return &Engine{catalog: catalog, opts: opts}
}

// Run executes one scan. The returned Result is never nil: on failure it
// carries status failed, the error message, and whatever aggregates were
// captured before the failure. The error classifies the failure kind for
// the caller; a completed scan returns a nil error even if sub-probes
// degraded.
func (e *Engine) Run(ctx context.Context, req Request) (*Result, error) {
	if req.Profile == "" {
		req.Profile = ProfileBaseline
	}
	result := &Result{
		ScanID:    req.ScanID,
		URL:       req.URL,
		Profile:   req.Profile,
		Status:    StatusFailed,
		StartedAt: time.Now().UTC(),
	}
	m := newMachine()

	err := e.run(ctx, req, result, m)
	result.FinishedAt = time.Now().UTC()
	if err != nil {
		m.fail()
		result.Status = StatusFailed
		result.ErrorMessage = fmt.Sprintf("%s: %v", KindOf(err), err)
		return result, err
	}
	result.Status = StatusCompleted
	return result, nil
}

func (e *Engine) run(ctx context.Context, req Request, result *Result, m *machine) error {
	if err := validateRequest(req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	// created: allocate the browser context with profile-specific wiring.
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, e.allocatorOptions()...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Teardown is guaranteed on every exit path. Cancellation can block
	// on Chrome child processes, so it runs with a kill window: capture
	// the process before cancel (the reference may be nil afterwards),
	// force-kill if the graceful path stalls.
	cancelBrowser := func() {
		var proc *os.Process
		if c := chromedp.FromContext(browserCtx); c != nil && c.Browser != nil {
			proc = c.Browser.Process()
		}
		done := make(chan struct{})
		go func() {
			browserCancel()
			allocCancel()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(duration.TeardownKill):
			if proc != nil {
				_ = proc.Kill()
			}
		}
	}
	defer cancelBrowser()

	var strict *netintercept.StrictConfig
	if req.Profile == ProfileStrict {
		cfg := req.Strict
		strict = &cfg
	}
	interceptor := netintercept.New(domains.RootFromURL(req.URL), e.catalog, strict)

	// Attach listeners before the browser even starts so first-paint
	// requests cannot slip past.
	interceptor.Attach(browserCtx)
	var httpStatus int
	chromedp.ListenTarget(browserCtx, func(ev interface{}) {
		if resp, ok := ev.(*network.EventResponseReceived); ok {
			if resp.Type == network.ResourceTypeDocument && httpStatus == 0 {
				httpStatus = int(resp.Response.Status)
			}
		}
	})

	// Starting the browser is the first point session allocation can
	// fail (missing binary, sandbox trouble, dead display).
	preNav := append([]chromedp.Action{}, interceptor.EnableActions()...)
	preNav = append(preNav, fingerprint.InstallAction())
	if err := chromedp.Run(browserCtx, preNav...); err != nil {
		return fmt.Errorf("%w: %v", ErrSessionAllocation, err)
	}

	if err := m.advance(StateNavigating); err != nil {
		return err
	}
	navCtx, navCancel := context.WithTimeout(browserCtx, e.opts.NavigationTimeout)
	err := chromedp.Run(navCtx, chromedp.Navigate(req.URL))
	navCancel()
	if err != nil {
		e.snapshotInto(result, interceptor)
		return classifyNavigationError(err)
	}

	waitSettle(browserCtx, interceptor)

	// Resolve the final URL; a cross-domain redirect moves the root and
	// the aggregates are reclassified against it.
	var finalURL, title string
	_ = chromedp.Run(browserCtx, chromedp.Location(&finalURL), chromedp.Title(&title))
	result.FinalURL = finalURL
	result.PageTitle = title
	result.HTTPStatus = httpStatus
	if finalURL != "" {
		if root := domains.RootFromURL(finalURL); root != domains.RootFromURL(req.URL) {
			interceptor.Reclassify(root)
		}
	}

	if err := m.advance(StateCollecting); err != nil {
		return err
	}
	root := domains.RootFromURL(result.FinalURL)
	if root == "" {
		root = domains.RootFromURL(req.URL)
	}
	e.collect(browserCtx, result, root)
	e.captureArtifacts(browserCtx, req.ScanID, interceptor)

	// A scan-level timeout that fired during collection fails the scan;
	// the snapshot below still rides along in the partial result.
	if ctx.Err() != nil {
		e.snapshotInto(result, interceptor)
		return fmt.Errorf("%w: scan deadline exceeded during collection", ErrNavigationTimeout)
	}

	if err := m.advance(StateScored); err != nil {
		return err
	}
	e.snapshotInto(result, interceptor)
	s := score.Calculate(result.ScoreInput())
	result.PrivacyScore = &s.Score
	result.Breakdown = s.Breakdown

	return m.advance(StateCompleted)
}

// collect runs the storage, cookie, and fingerprint collection phase.
// Failures here are script-evaluation degradations: the affected
// sub-result zeroes out, the scan still completes, and the degradation is
// reflected in the result's error message.
func (e *Engine) collect(browserCtx context.Context, result *Result, root string) {
	probeCtx, cancel := context.WithTimeout(browserCtx, duration.Probe)
	defer cancel()

	cookies, err := storageprobe.CollectCookies(probeCtx, root, e.catalog)
	if err != nil {
		result.ErrorMessage = degraded(result.ErrorMessage, fmt.Errorf("%w: cookies: %v", ErrScriptEvaluation, err))
	} else {
		result.Cookies = cookies
	}

	summary, err := storageprobe.Probe(probeCtx)
	if err != nil {
		result.ErrorMessage = degraded(result.ErrorMessage, fmt.Errorf("%w: storage: %v", ErrScriptEvaluation, err))
	} else {
		result.Storage = summary
	}

	records, err := fingerprint.Collect(probeCtx)
	if err != nil {
		result.ErrorMessage = degraded(result.ErrorMessage, fmt.Errorf("%w: fingerprint: %v", ErrScriptEvaluation, err))
	} else {
		result.Detections = fingerprint.Analyze(records)
	}
}

// captureArtifacts hands the screenshot and network log to the sink.
// Best-effort: artifact trouble never fails a scan.
func (e *Engine) captureArtifacts(browserCtx context.Context, scanID string, interceptor *netintercept.Interceptor) {
	if scanID == "" {
		return
	}
	var shot []byte
	shotCtx, cancel := context.WithTimeout(browserCtx, duration.Probe)
	err := chromedp.Run(shotCtx, chromedp.FullScreenshot(&shot, 90))
	cancel()
	if err == nil && len(shot) > 0 {
		_ = e.opts.Artifacts.Store(scanID, artifact.KindScreenshot, shot)
	}
	if log, err := json.Marshal(interceptor.Snapshot()); err == nil {
		_ = e.opts.Artifacts.Store(scanID, artifact.KindNetworkLog, log)
	}
}

// snapshotInto freezes the interceptor's aggregates into the result. Also
// called on failure paths so partial aggregates survive.
func (e *Engine) snapshotInto(result *Result, interceptor *netintercept.Interceptor) {
	result.Domains = interceptor.Snapshot()
	requests, bytes, thirdParty, trackers := interceptor.Totals()
	result.TotalRequests = requests
	result.TotalBytes = bytes
	result.ThirdPartyDomains = thirdParty
	result.TrackerDomains = trackers
	result.CookiesSet = len(result.Cookies)
	result.LocalStorageKeys = result.Storage.LocalStorageKeyCount
}

// waitSettle waits for the network to go quiet: no new requests for a
// grace window, bounded overall. A chatty page that never idles simply
// gets collected at the bound.
func waitSettle(ctx context.Context, interceptor *netintercept.Interceptor) {
	deadline := time.Now().Add(duration.SettleMax)
	lastCount, _, _, _ := interceptor.Totals()
	quietSince := time.Now()

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return
		case <-time.After(duration.SettlePoll):
		}
		count, _, _, _ := interceptor.Totals()
		if count != lastCount {
			lastCount = count
			quietSince = time.Now()
			continue
		}
		if time.Since(quietSince) >= duration.SettleGrace {
			return
		}
	}
}

func validateRequest(req Request) error {
	if !req.Profile.IsValid() {
		return fmt.Errorf("%w: unknown profile %q", ErrValidation, req.Profile)
	}
	u, err := url.Parse(req.URL)
	if err != nil {
		return fmt.Errorf("%w: parse url: %v", ErrValidation, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", ErrValidation, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: url has no host", ErrValidation)
	}
	return nil
}

func (e *Engine) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-backgrounding-occluded-windows", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("window-size", "1366,900"),
		chromedp.UserAgent(e.opts.UserAgent),
	)
	if e.opts.Headful {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	return opts
}

// degraded appends a degradation note to an error message field without
// clobbering earlier notes.
func degraded(existing string, err error) string {
	if existing == "" {
		return err.Error()
	}
	return existing + "; " + err.Error()
}
