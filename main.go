package main

import (
	"fmt"

	"github.com/nkats/pomdp-plan/benchmarks"
)

// main entry point to all the benchmarks
func main() {
	rootCommand := benchmarks.GetRootCommand()
	if err := rootCommand.Execute(); err != nil {
		fmt.Println(err)
	}
}
