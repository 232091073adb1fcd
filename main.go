package main

import (
	"os"

	"github.com/signalnine/phasebench/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
