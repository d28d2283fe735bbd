package main

import (
	"os"

	"github.com/dreschagin/vessel-guard/cmd/guardctl/cmd"
)

func main() {
	if err := cmd.NewCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
