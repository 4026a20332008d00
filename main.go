package main

import (
	"fmt"
	"os"

	"github.com/zeu5/grid-driving-vi/benchmarks"
)

// main entry point to all the experiments
func main() {
	// rootCommand defines a command line argument parser (some arguments and a subcommand to run)
	rootCommand := benchmarks.GetRootCommand()
	if err := rootCommand.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
