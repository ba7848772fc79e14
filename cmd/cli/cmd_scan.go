package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/privacyscope/privacyscope/pkg/artifact"
	"github.com/privacyscope/privacyscope/pkg/compare"
	"github.com/privacyscope/privacyscope/pkg/config"
	"github.com/privacyscope/privacyscope/pkg/domains"
	"github.com/privacyscope/privacyscope/pkg/duration"
	"github.com/privacyscope/privacyscope/pkg/netintercept"
	"github.com/privacyscope/privacyscope/pkg/scan"
	"github.com/privacyscope/privacyscope/pkg/telemetry"
	"github.com/privacyscope/privacyscope/pkg/trackers"
	"github.com/privacyscope/privacyscope/pkg/ui"
)

func runScan(args []string) {
	cfg := parseScanFlags(args)
	if err := cfg.Validate(); err != nil {
		fatal(err)
	}
	if cfg.NoColor || !ui.ColorEnabled() {
		ui.DisableColor()
	}

	catalog := loadCatalog(cfg.TrackerList)

	var sink artifact.Sink
	if cfg.ScreenshotDir != "" {
		dir, err := artifact.NewDir(cfg.ScreenshotDir)
		if err != nil {
			fatal(err)
		}
		sink = dir
	}

	eng := scan.NewEngine(catalog, scan.Options{
		Timeout:   cfg.Timeout,
		Headful:   cfg.Headful,
		Artifacts: sink,
	})

	var metrics *telemetry.Metrics
	if cfg.MetricsPort > 0 {
		metrics = telemetry.New()
		metrics.Serve(cfg.MetricsPort)
		defer metrics.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	strictCfg, err := config.LoadStrictConfig(cfg.StrictConfigFile)
	if err != nil {
		fatal(err)
	}

	targets, err := loadTargets(cfg)
	if err != nil {
		fatal(err)
	}

	// Scans against a URL list are paced so one run does not hammer
	// shared infrastructure.
	limiter := rate.NewLimiter(rate.Every(duration.ScanSpacing), 1)
	failures := 0
	for n, target := range targets {
		if len(targets) > 1 {
			if err := limiter.Wait(ctx); err != nil {
				break
			}
			fmt.Printf("[%d/%d] %s\n", n+1, len(targets), target)
		}
		if cfg.Both {
			if err := scanBoth(ctx, eng, metrics, cfg, strictCfg, target); err != nil {
				failures++
				fmt.Fprintln(os.Stderr, "error:", err)
			}
			continue
		}
		if err := scanOne(ctx, eng, metrics, cfg, strictCfg, target, cfg.EffectiveProfile(), cfg.OutputFile); err != nil {
			failures++
			fmt.Fprintln(os.Stderr, "error:", err)
		}
	}
	if failures > 0 {
		os.Exit(1)
	}
}

// scanOne runs a single profile scan, prints the report, and persists the
// result if requested. A failed scan still prints and persists its
// partial result.
func scanOne(ctx context.Context, eng *scan.Engine, metrics *telemetry.Metrics,
	cfg *config.Config, strictCfg netintercept.StrictConfig, target string,
	profile scan.Profile, outFile string,
) error {
	req := scan.Request{
		ScanID:  uuid.NewString(),
		URL:     target,
		Profile: profile,
	}
	if profile == scan.ProfileStrict {
		req.Strict = strictCfg
	}

	res, runErr := eng.Run(ctx, req)
	metrics.ObserveScan(res, runErr)

	printResult(cfg, res)
	if outFile != "" {
		if err := scan.SaveResult(outFile, res); err != nil {
			return err
		}
	}
	return runErr
}

// scanBoth runs baseline then strict against the same target and prints
// the comparison.
func scanBoth(ctx context.Context, eng *scan.Engine, metrics *telemetry.Metrics,
	cfg *config.Config, strictCfg netintercept.StrictConfig, target string,
) error {
	base := cfg.OutputFile
	var baseOut, strictOut string
	if base != "" {
		stem := strings.TrimSuffix(base, ".json")
		baseOut = stem + ".baseline.json"
		strictOut = stem + ".strict.json"
	}

	baseReq := scan.Request{ScanID: uuid.NewString(), URL: target, Profile: scan.ProfileBaseline}
	baseRes, err := eng.Run(ctx, baseReq)
	metrics.ObserveScan(baseRes, err)
	printResult(cfg, baseRes)
	if baseOut != "" {
		if werr := scan.SaveResult(baseOut, baseRes); werr != nil {
			return werr
		}
	}
	if err != nil {
		return err
	}

	strictReq := scan.Request{
		ScanID:  uuid.NewString(),
		URL:     target,
		Profile: scan.ProfileStrict,
		Strict:  strictCfg,
	}
	strictRes, err := eng.Run(ctx, strictReq)
	metrics.ObserveScan(strictRes, err)
	printResult(cfg, strictRes)
	if strictOut != "" {
		if werr := scan.SaveResult(strictOut, strictRes); werr != nil {
			return werr
		}
	}
	if err != nil {
		return err
	}

	delta, err := compare.Compare(baseRes, strictRes)
	if err != nil {
		return err
	}
	if cfg.JSONOutput {
		return printJSON(delta)
	}
	fmt.Println(ui.RenderComparison(delta))
	return nil
}

func printResult(cfg *config.Config, res *scan.Result) {
	if cfg.JSONOutput {
		if err := printJSON(res); err != nil {
			fatal(err)
		}
		return
	}
	fmt.Println(ui.RenderResult(res))
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func loadCatalog(path string) domains.TrackerSet {
	if path == "" {
		return trackers.Default()
	}
	// A broken catalog is a fatal configuration error, not a per-scan
	// one: scanning with an empty tracker set would be silently wrong.
	c, err := trackers.LoadFile(path)
	if err != nil {
		fatal(err)
	}
	return c
}

func loadTargets(cfg *config.Config) ([]string, error) {
	if cfg.TargetURL != "" {
		return []string{cfg.TargetURL}, nil
	}
	f, err := os.Open(cfg.ListFile)
	if err != nil {
		return nil, fmt.Errorf("open list file: %w", err)
	}
	defer f.Close()

	var targets []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		targets = append(targets, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read list file: %w", err)
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("list file %s has no targets", cfg.ListFile)
	}
	return targets, nil
}

func parseScanFlags(args []string) *config.Config {
	cfg := &config.Config{}
	fs := flag.NewFlagSet("scan", flag.ExitOnError)

	fs.StringVar(&cfg.TargetURL, "u", "", "target URL")
	fs.StringVar(&cfg.TargetURL, "url", "", "target URL (alias of -u)")
	fs.StringVar(&cfg.ListFile, "l", "", "file of target URLs")
	fs.StringVar(&cfg.ListFile, "list", "", "file of target URLs (alias of -l)")
	fs.StringVar(&cfg.Profile, "profile", "", "scan profile: baseline or strict")
	fs.StringVar(&cfg.StrictConfigFile, "strict-config", "", "YAML strict policy file")
	fs.BoolVar(&cfg.Both, "both", false, "run baseline and strict, print the comparison")
	fs.StringVar(&cfg.OutputFile, "o", "", "result JSON output path")
	fs.StringVar(&cfg.OutputFile, "output", "", "result JSON output path (alias of -o)")
	fs.StringVar(&cfg.ScreenshotDir, "screenshot-dir", "", "artifact directory")
	fs.StringVar(&cfg.TrackerList, "trackers", "", "replacement tracker catalog JSON")
	fs.DurationVar(&cfg.Timeout, "timeout", 0, "per-scan deadline (default 90s)")
	fs.BoolVar(&cfg.JSONOutput, "json", false, "print raw JSON")
	fs.BoolVar(&cfg.Headful, "headful", false, "show the browser window")
	fs.BoolVar(&cfg.NoColor, "no-color", false, "disable styled output")
	fs.IntVar(&cfg.MetricsPort, "metrics-port", 0, "Prometheus metrics port (0 = disabled)")

	_ = fs.Parse(args)
	return cfg
}
