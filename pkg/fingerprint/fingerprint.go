// Package fingerprint detects browser-fingerprinting behavior from
// instrumented API calls. Before navigation the engine installs a script
// that wraps a fixed catalog of fingerprinting-relevant surfaces (canvas
// pixel readback, WebGL parameter enumeration, audio pipeline readback,
// font measurement) and records every call with the origin of the calling
// script. At scan end the recorded calls are analyzed into detections.
//
// Detection is best-effort: wrapped or obfuscated calls produce false
// negatives. This is a heuristic signal, not a security boundary.
package fingerprint

import (
	"fmt"
	"sort"

	"github.com/privacyscope/privacyscope/pkg/domains"
)

// Technique is the closed set of fingerprinting surfaces the detector
// recognizes.
type Technique string

const (
	TechniqueCanvas Technique = "canvas"
	TechniqueWebGL  Technique = "webgl"
	TechniqueAudio  Technique = "audio"
	TechniqueFont   Technique = "font"
)

// Severity grades how strongly the observed call combination indicates
// fingerprinting, not how many calls were made.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// IsValid reports whether s is a known severity.
func (s Severity) IsValid() bool {
	return s == SeverityLow || s == SeverityMedium || s == SeverityHigh
}

// Score orders severities for sorting and display.
func (s Severity) Score() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// signature classes. Severity rules threshold on the combination of
// classes seen from one script, not on raw call volume.
type class string

const (
	classRender   class = "render"   // drawing precursors (canvas text/path)
	classReadback class = "readback" // pixel/frequency extraction
	classEnum     class = "enum"     // capability enumeration
	classDebug    class = "debug"    // GPU identity via debug extensions
	classContext  class = "context"  // audio context construction
	classNode     class = "node"     // audio node creation
	classMeasure  class = "measure"  // text measurement
)

type signature struct {
	technique Technique
	class     class
}

// catalog maps recorded signature names to their technique and class. The
// names match what the instrumentation script emits.
var catalog = map[string]signature{
	"toDataURL":    {TechniqueCanvas, classReadback},
	"toBlob":       {TechniqueCanvas, classReadback},
	"getImageData": {TechniqueCanvas, classReadback},
	"fillText":     {TechniqueCanvas, classRender},
	"strokeText":   {TechniqueCanvas, classRender},

	"getParameter":                            {TechniqueWebGL, classEnum},
	"getParameter(37445)":                     {TechniqueWebGL, classDebug},
	"getParameter(37446)":                     {TechniqueWebGL, classDebug},
	"getSupportedExtensions":                  {TechniqueWebGL, classEnum},
	"getExtension(WEBGL_debug_renderer_info)": {TechniqueWebGL, classDebug},
	"getShaderPrecisionFormat":                {TechniqueWebGL, classEnum},

	"OfflineAudioContext":      {TechniqueAudio, classContext},
	"AudioContext":             {TechniqueAudio, classContext},
	"createOscillator":         {TechniqueAudio, classNode},
	"createAnalyser":           {TechniqueAudio, classNode},
	"createDynamicsCompressor": {TechniqueAudio, classNode},
	"getFloatFrequencyData":    {TechniqueAudio, classReadback},
	"getByteFrequencyData":     {TechniqueAudio, classReadback},

	"measureText":    {TechniqueFont, classMeasure},
	"document.fonts": {TechniqueFont, classEnum},
}

var descriptions = map[Technique]string{
	TechniqueCanvas: "Canvas fingerprinting - generates unique hash from rendered graphics",
	TechniqueWebGL:  "WebGL fingerprinting - identifies GPU and graphics capabilities",
	TechniqueAudio:  "Audio fingerprinting - detects unique audio processing characteristics",
	TechniqueFont:   "Font fingerprinting - detects installed fonts through measurement",
}

// maxPatternsInEvidence caps the pattern list carried in evidence; the
// remainder is visible through TotalMatches.
const maxPatternsInEvidence = 5

// Record is one instrumented call as reported by the page.
type Record struct {
	// Signature names the wrapped API call, matching a catalog key.
	Signature string `json:"s"`

	// ScriptURL is the best-effort origin of the calling script,
	// recovered from the call stack. Empty when unattributable.
	ScriptURL string `json:"u"`

	// Time is the page-relative timestamp in milliseconds.
	Time float64 `json:"t"`

	// Family carries the probed font-family for measureText records.
	Family string `json:"f,omitempty"`
}

// Evidence documents why a detection was emitted.
type Evidence struct {
	Description string `json:"description"`

	// PatternsFound lists matched signature names ordered by first
	// occurrence, capped at five.
	PatternsFound []string `json:"patterns_found"`

	// TotalMatches is the raw instrumented-call count for this
	// (technique, origin), including calls beyond the pattern cap.
	TotalMatches int `json:"total_matches"`
}

// Detection is one (technique, script origin) finding. Detections are
// immutable once emitted and never merged: duplicates across separate
// analysis passes are kept distinct, deduplication is the caller's choice.
type Detection struct {
	Technique Technique `json:"technique"`
	Domain    string    `json:"domain"`
	ScriptURL string    `json:"script_url,omitempty"`
	Severity  Severity  `json:"severity"`
	Evidence  Evidence  `json:"evidence"`
}

// group accumulates records for one (technique, script URL) pair.
type group struct {
	technique Technique
	scriptURL string
	classes   map[class]bool
	families  map[string]bool

	// order preserves signature names by first occurrence.
	order     []string
	seen      map[string]bool
	callCount int
	firstTime float64
}

// Analyze reduces instrumented call records to detections, one per
// (technique, script origin) with at least one matched signature. Pure:
// the same records always yield the same detections, ordered by first
// occurrence time then domain.
func Analyze(records []Record) []Detection {
	groups := make(map[string]*group)

	for _, r := range records {
		sig, ok := catalog[r.Signature]
		if !ok {
			continue
		}
		key := string(sig.technique) + "\x00" + r.ScriptURL
		g, ok := groups[key]
		if !ok {
			g = &group{
				technique: sig.technique,
				scriptURL: r.ScriptURL,
				classes:   make(map[class]bool),
				families:  make(map[string]bool),
				seen:      make(map[string]bool),
				firstTime: r.Time,
			}
			groups[key] = g
		}
		g.callCount++
		g.classes[sig.class] = true
		if !g.seen[r.Signature] {
			g.seen[r.Signature] = true
			g.order = append(g.order, r.Signature)
		}
		if r.Family != "" {
			g.families[r.Family] = true
		}
		if r.Time < g.firstTime {
			g.firstTime = r.Time
		}
	}

	out := make([]Detection, 0, len(groups))
	for _, g := range groups {
		patterns := g.order
		if len(patterns) > maxPatternsInEvidence {
			patterns = patterns[:maxPatternsInEvidence]
		}
		out = append(out, Detection{
			Technique: g.technique,
			Domain:    hostOf(g.scriptURL),
			ScriptURL: g.scriptURL,
			Severity:  severityFor(g),
			Evidence: Evidence{
				Description:   descriptions[g.technique],
				PatternsFound: patterns,
				TotalMatches:  g.callCount,
			},
		})
	}

	sort.Slice(out, func(a, b int) bool {
		ga := groups[string(out[a].Technique)+"\x00"+out[a].ScriptURL]
		gb := groups[string(out[b].Technique)+"\x00"+out[b].ScriptURL]
		if ga.firstTime != gb.firstTime {
			return ga.firstTime < gb.firstTime
		}
		if out[a].Domain != out[b].Domain {
			return out[a].Domain < out[b].Domain
		}
		return out[a].Technique < out[b].Technique
	})
	return out
}

// Font-probe thresholds: a fingerprinter measures dozens of families in a
// burst, ordinary layout code touches a handful.
const (
	fontFamiliesMedium = 5
	fontFamiliesHigh   = 20
)

// severityFor thresholds the combination of observed signature classes.
// An isolated capability touch stays low; the full pipeline of a known
// fingerprinting routine goes high.
func severityFor(g *group) Severity {
	switch g.technique {
	case TechniqueCanvas:
		// A render followed by a pixel read from the same script is
		// the canonical canvas-hash pipeline.
		if g.classes[classRender] && g.classes[classReadback] {
			return SeverityHigh
		}
		if g.classes[classReadback] && countSeen(g, classReadback) >= 2 {
			return SeverityMedium
		}
		return SeverityLow

	case TechniqueWebGL:
		// Unmasked vendor/renderer queries exist only to identify the
		// GPU.
		if g.classes[classDebug] {
			return SeverityHigh
		}
		if countSeen(g, classEnum) >= 2 {
			return SeverityMedium
		}
		return SeverityLow

	case TechniqueAudio:
		if g.classes[classContext] && g.classes[classNode] && g.classes[classReadback] {
			return SeverityHigh
		}
		if g.classes[classContext] && g.classes[classNode] {
			return SeverityMedium
		}
		return SeverityLow

	case TechniqueFont:
		if g.classes[classMeasure] && len(g.families) >= fontFamiliesHigh {
			return SeverityHigh
		}
		if len(g.families) >= fontFamiliesMedium {
			return SeverityMedium
		}
		return SeverityLow
	}
	return SeverityLow
}

// countSeen counts distinct matched signatures of the given class.
func countSeen(g *group, c class) int {
	n := 0
	for name := range g.seen {
		if catalog[name].class == c {
			n++
		}
	}
	return n
}

func hostOf(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	c := domains.Classify(rawURL, "", nil)
	return c.Domain
}

// String implements fmt.Stringer for log lines.
func (d Detection) String() string {
	return fmt.Sprintf("%s/%s %s (%d matches)", d.Technique, d.Severity, d.Domain, d.Evidence.TotalMatches)
}
