// Package main provides the pw2-onifier command.
package main

import (
	"os"

	"github.com/Terr/phoenix-wright-2-onifier/internal/cli"
)

func main() {
	if err := cli.Execute(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}
