package fingerprint

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// recordLimit caps the in-page record buffer so a pathological page cannot
// grow it without bound. The analyzer never needs more than this to reach
// its severity thresholds.
const recordLimit = 4000

// instrumentScript wraps the fingerprinting-relevant surfaces and records
// each call with the calling script's URL (recovered from the stack) and a
// page-relative timestamp. Installed before navigation on every new
// document, so first-paint scripts are covered. Read-only with respect to
// page behavior: every wrapper delegates to the original.
var instrumentScript = `(() => {
  if (window.__psRecords) return;
  const records = [];
  Object.defineProperty(window, '__psRecords', { value: records });

  const originOf = () => {
    try {
      const lines = (new Error().stack || '').split('\n');
      for (let i = 2; i < lines.length; i++) {
        const m = lines[i].match(/(https?:\/\/[^\s()]+?)(?::\d+){0,2}\)?$/);
        if (m) return m[1];
      }
    } catch (e) {}
    return '';
  };

  const rec = (s, f) => {
    if (records.length >= ` + fmt.Sprint(recordLimit) + `) return;
    const r = { s: s, u: originOf(), t: performance.now() };
    if (f) r.f = String(f).slice(0, 128);
    records.push(r);
  };

  const wrap = (proto, name, sig, extra) => {
    if (!proto || typeof proto[name] !== 'function') return;
    const orig = proto[name];
    proto[name] = function (...args) {
      try {
        const v = typeof sig === 'function' ? sig(args) : sig;
        if (v) rec(v, extra && extra(this, args));
      } catch (e) {}
      return orig.apply(this, args);
    };
  };

  // Canvas: renders and pixel readbacks.
  wrap(HTMLCanvasElement.prototype, 'toDataURL', 'toDataURL');
  wrap(HTMLCanvasElement.prototype, 'toBlob', 'toBlob');
  if (window.CanvasRenderingContext2D) {
    const c2d = CanvasRenderingContext2D.prototype;
    wrap(c2d, 'getImageData', 'getImageData');
    wrap(c2d, 'fillText', 'fillText');
    wrap(c2d, 'strokeText', 'strokeText');
    wrap(c2d, 'measureText', 'measureText', (self) => self.font);
  }

  // WebGL: capability enumeration and GPU identity queries.
  const wrapGL = (ctor) => {
    if (!window[ctor]) return;
    const gl = window[ctor].prototype;
    wrap(gl, 'getParameter', (args) =>
      (args[0] === 37445 || args[0] === 37446) ? 'getParameter(' + args[0] + ')' : 'getParameter');
    wrap(gl, 'getSupportedExtensions', 'getSupportedExtensions');
    wrap(gl, 'getShaderPrecisionFormat', 'getShaderPrecisionFormat');
    wrap(gl, 'getExtension', (args) =>
      args[0] === 'WEBGL_debug_renderer_info' ? 'getExtension(WEBGL_debug_renderer_info)' : null);
  };
  wrapGL('WebGLRenderingContext');
  wrapGL('WebGL2RenderingContext');

  // Audio: context construction, node graph, frequency readback.
  const wrapCtor = (name) => {
    if (!window[name]) return;
    const Orig = window[name];
    const Wrapped = function (...args) {
      rec(name === 'webkitOfflineAudioContext' ? 'OfflineAudioContext'
        : name === 'webkitAudioContext' ? 'AudioContext' : name);
      return new Orig(...args);
    };
    Wrapped.prototype = Orig.prototype;
    window[name] = Wrapped;
  };
  wrapCtor('OfflineAudioContext');
  wrapCtor('webkitOfflineAudioContext');
  wrapCtor('AudioContext');
  wrapCtor('webkitAudioContext');
  if (window.BaseAudioContext) {
    const bac = BaseAudioContext.prototype;
    wrap(bac, 'createOscillator', 'createOscillator');
    wrap(bac, 'createAnalyser', 'createAnalyser');
    wrap(bac, 'createDynamicsCompressor', 'createDynamicsCompressor');
  }
  if (window.AnalyserNode) {
    wrap(AnalyserNode.prototype, 'getFloatFrequencyData', 'getFloatFrequencyData');
    wrap(AnalyserNode.prototype, 'getByteFrequencyData', 'getByteFrequencyData');
  }

  // Fonts: FontFaceSet probing.
  if (window.FontFaceSet) {
    wrap(FontFaceSet.prototype, 'check', 'document.fonts', (_, args) => args[0]);
  }
})();`

// InstallAction returns the action that installs the instrumentation on
// every new document. Must run before navigation.
func InstallAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(instrumentScript).Do(ctx)
		if err != nil {
			return fmt.Errorf("fingerprint: install instrumentation: %w", err)
		}
		return nil
	})
}

// Collect reads the instrumented call records back out of the page.
func Collect(ctx context.Context) ([]Record, error) {
	var raw string
	err := chromedp.Evaluate(`JSON.stringify(window.__psRecords || [])`, &raw).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("fingerprint: read records: %w", err)
	}
	return ParseRecords(raw)
}

// ParseRecords decodes the JSON the in-page buffer serializes to.
// Exported so analysis can be tested without a browser.
func ParseRecords(raw string) ([]Record, error) {
	if raw == "" || raw == "[]" {
		return nil, nil
	}
	var records []Record
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, fmt.Errorf("fingerprint: parse records: %w", err)
	}
	return records, nil
}
