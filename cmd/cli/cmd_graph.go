package main

import (
	"flag"
	"fmt"

	"github.com/privacyscope/privacyscope/pkg/graph"
	"github.com/privacyscope/privacyscope/pkg/scan"
)

func runGraph(args []string) {
	fs := flag.NewFlagSet("graph", flag.ExitOnError)
	var resultPath string
	fs.StringVar(&resultPath, "r", "", "result JSON to build the graph from")
	fs.StringVar(&resultPath, "result", "", "result JSON (alias of -r)")
	_ = fs.Parse(args)

	if resultPath == "" {
		fatal(fmt.Errorf("graph needs -r RESULT.json"))
	}
	r, err := scan.LoadResult(resultPath)
	if err != nil {
		fatal(err)
	}
	if err := printJSON(graph.Build(r)); err != nil {
		fatal(err)
	}
}
