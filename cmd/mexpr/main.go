package main

import (
	"os"

	"github.com/msto63/mExpr/cmd/mexpr/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
