package ui

import (
	"fmt"
	"strings"

	"github.com/privacyscope/privacyscope/pkg/compare"
	"github.com/privacyscope/privacyscope/pkg/scan"
	"github.com/privacyscope/privacyscope/pkg/score"
)

// RenderResult formats a scan result as a styled report.
func RenderResult(r *scan.Result) string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("privacy scan"))
	b.WriteString("  ")
	b.WriteString(URLStyle.Render(r.URL))
	b.WriteString("\n")

	if r.Status == scan.StatusFailed {
		b.WriteString(ErrorStyle.Render("scan failed"))
		b.WriteString(" " + r.ErrorMessage + "\n")
		if len(r.Domains) > 0 {
			b.WriteString(MutedStyle.Render(fmt.Sprintf("partial capture: %d domains, %d requests\n",
				len(r.Domains), r.TotalRequests)))
		}
		return b.String()
	}

	if r.PrivacyScore != nil {
		s := *r.PrivacyScore
		b.WriteString(SectionStyle.Render("Score"))
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("  %s  %s\n",
			ScoreStyle(s).Render(fmt.Sprintf("%d/100", s)),
			MutedStyle.Render("grade "+score.Grade(s))))
		b.WriteString(renderBreakdown(r.Breakdown))
	}

	b.WriteString(SectionStyle.Render("Page"))
	b.WriteString("\n")
	writeKV(&b, "final url", r.FinalURL)
	writeKV(&b, "title", r.PageTitle)
	writeKV(&b, "http status", fmt.Sprintf("%d", r.HTTPStatus))
	writeKV(&b, "profile", string(r.Profile))
	writeKV(&b, "duration", r.FinishedAt.Sub(r.StartedAt).Round(1e7).String())

	b.WriteString(SectionStyle.Render("Traffic"))
	b.WriteString("\n")
	writeKV(&b, "requests", fmt.Sprintf("%d (%s)", r.TotalRequests, humanBytes(r.TotalBytes)))
	writeKV(&b, "third-party domains", fmt.Sprintf("%d", r.ThirdPartyDomains))
	writeKV(&b, "tracker domains", fmt.Sprintf("%d", r.TrackerDomains))
	for _, d := range r.Domains {
		if !d.IsTracker && d.BlockedCount == 0 {
			continue
		}
		line := "  " + d.Domain
		if d.IsTracker {
			line += " " + TrackerStyle.Render("[tracker]")
		}
		if d.BlockedCount > 0 {
			line += " " + BlockedStyle.Render(fmt.Sprintf("[%d blocked]", d.BlockedCount))
		}
		b.WriteString(line + "\n")
	}

	b.WriteString(SectionStyle.Render("Storage"))
	b.WriteString("\n")
	writeKV(&b, "cookies", fmt.Sprintf("%d", r.CookiesSet))
	writeKV(&b, "localStorage keys", fmt.Sprintf("%d", r.LocalStorageKeys))
	writeKV(&b, "IndexedDB", yesNo(r.Storage.IndexedDBPresent))
	writeKV(&b, "service worker", yesNo(r.Storage.ServiceWorkerPresent))

	if len(r.Detections) > 0 {
		b.WriteString(SectionStyle.Render("Fingerprinting"))
		b.WriteString("\n")
		for _, d := range r.Detections {
			b.WriteString(fmt.Sprintf("  %s %s %s\n",
				SeverityStyle(string(d.Severity)).Render(string(d.Severity)),
				string(d.Technique),
				MutedStyle.Render(d.Domain)))
			b.WriteString(MutedStyle.Render("    "+d.Evidence.Description) + "\n")
		}
	}

	if r.ErrorMessage != "" {
		b.WriteString(MutedStyle.Render("note: "+r.ErrorMessage) + "\n")
	}
	return b.String()
}

// RenderComparison formats a baseline/strict (or any A/B) delta report.
func RenderComparison(c *compare.Result) string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("scan comparison"))
	b.WriteString("\n")
	writeKV(&b, "a", fmt.Sprintf("%s (%s)", c.AURL, c.AProfile))
	writeKV(&b, "b", fmt.Sprintf("%s (%s)", c.BURL, c.BProfile))

	b.WriteString(SectionStyle.Render("Deltas (b - a)"))
	b.WriteString("\n")
	writeKV(&b, "score", signed(c.ScoreDelta))
	writeKV(&b, "third-party domains", signed(c.ThirdPartyDomainDelta))
	writeKV(&b, "cookies", signed(c.CookieDelta))
	writeKV(&b, "bytes", signedBytes(c.ByteDelta))
	writeKV(&b, "cookies added/removed", fmt.Sprintf("+%d / -%d", c.CookiesAddedCount, c.CookiesRemovedCount))

	if len(c.DomainsAdded) > 0 {
		b.WriteString(SectionStyle.Render("Domains added"))
		b.WriteString("\n")
		for _, d := range c.DomainsAdded {
			b.WriteString("  + " + d + "\n")
		}
	}
	if len(c.DomainsRemoved) > 0 {
		b.WriteString(SectionStyle.Render("Domains removed"))
		b.WriteString("\n")
		for _, d := range c.DomainsRemoved {
			b.WriteString("  - " + BlockedStyle.Render(d) + "\n")
		}
	}
	return b.String()
}

func renderBreakdown(bd score.Breakdown) string {
	if bd.Total == 0 {
		return ""
	}
	var b strings.Builder
	item := func(label string, v int) {
		if v > 0 {
			b.WriteString(fmt.Sprintf("  %s -%d\n", LabelStyle.Render(label), v))
		}
	}
	item("third parties", bd.ThirdParty)
	item("cookies", bd.Cookies)
	item("trackers", bd.Trackers)
	item("localStorage", bd.LocalStorage)
	return b.String()
}

func writeKV(b *strings.Builder, label, value string) {
	b.WriteString("  " + LabelStyle.Render(label) + ValueStyle.Render(value) + "\n")
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func signed(v int) string {
	if v > 0 {
		return fmt.Sprintf("+%d", v)
	}
	return fmt.Sprintf("%d", v)
}

func signedBytes(v int64) string {
	if v >= 0 {
		return "+" + humanBytes(v)
	}
	return "-" + humanBytes(-v)
}

func humanBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
