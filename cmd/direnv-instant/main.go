package main

import (
	"fmt"
	"os"

	"github.com/hbjs97/direnv-instant/internal/cli"
)

func main() {
	app := cli.NewApp()
	cmd := app.NewRootCmd()
	if err := cmd.Execute(); err != nil {
		if !cli.IsReported(err) {
			fmt.Fprintf(os.Stderr, "direnv-instant: %v\n", err)
		}
		os.Exit(int(cli.MapExitCode(err)))
	}
}
