package main

import (
	"flag"
	"fmt"

	"github.com/privacyscope/privacyscope/pkg/compare"
	"github.com/privacyscope/privacyscope/pkg/scan"
	"github.com/privacyscope/privacyscope/pkg/ui"
)

func runCompare(args []string) {
	fs := flag.NewFlagSet("compare", flag.ExitOnError)
	var aPath, bPath string
	var jsonOut bool
	fs.StringVar(&aPath, "a", "", "first result JSON (the 'before')")
	fs.StringVar(&bPath, "b", "", "second result JSON (the 'after')")
	fs.BoolVar(&jsonOut, "json", false, "print raw JSON")
	_ = fs.Parse(args)

	if aPath == "" || bPath == "" {
		fatal(fmt.Errorf("compare needs both -a and -b"))
	}

	a, err := scan.LoadResult(aPath)
	if err != nil {
		fatal(err)
	}
	b, err := scan.LoadResult(bPath)
	if err != nil {
		fatal(err)
	}

	delta, err := compare.Compare(a, b)
	if err != nil {
		fatal(err)
	}
	if jsonOut {
		if err := printJSON(delta); err != nil {
			fatal(err)
		}
		return
	}
	fmt.Println(ui.RenderComparison(delta))
}
