package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mrlokans/courseshelf/internal/cli"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	args := os.Args[1:]
	// No command runs the HTTP server
	if len(args) == 0 {
		args = []string{"serve"}
	}

	if err := cli.Execute(context.Background(), Version+" ("+Commit+")", args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
