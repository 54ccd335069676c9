package main

import (
	"os"

	"github.com/insightpilot/insightpilot/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
