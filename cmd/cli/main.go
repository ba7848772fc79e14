// Command privacyscope produces privacy receipts for URLs: it drives a
// headless browser, observes network/cookie/storage behavior, detects
// fingerprinting, and reduces the observations to a 0-100 score.
package main

import (
	"fmt"
	"os"
)

const version = "0.3.1"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "scan", "run":
		runScan(os.Args[2:])
	case "compare", "diff":
		runCompare(os.Args[2:])
	case "graph":
		runGraph(os.Args[2:])
	case "version", "-v", "--version":
		fmt.Println("privacyscope " + version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`privacyscope ` + version + ` - browser-driven privacy scanner

Usage:
  privacyscope scan -u URL [options]     run a privacy scan
  privacyscope compare -a A.json -b B.json   diff two saved results
  privacyscope graph -r RESULT.json      emit the domain graph as JSON
  privacyscope version                   print the version

Scan options:
  -u, -url URL          target URL
  -l, -list FILE        file of target URLs, one per line
  -profile NAME         baseline (default) or strict
  -strict-config FILE   YAML strict policy (implies -profile strict)
  -both                 run baseline and strict, print the comparison
  -o, -output FILE      write the result JSON (with -both: two files,
                        FILE.baseline.json / FILE.strict.json)
  -screenshot-dir DIR   store screenshots and network logs under DIR
  -trackers FILE        replacement tracker catalog (default: bundled)
  -timeout DURATION     per-scan deadline (default 90s)
  -json                 print raw result JSON instead of the report
  -headful              show the browser window
  -no-color             disable styled output
  -metrics-port PORT    expose Prometheus metrics on PORT
`)
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
