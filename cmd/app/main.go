package main

import (
	"os"

	"github.com/AzenoHI/travel-hi/cmd"
)

func main() {
	if err := cmd.Run(); err != nil {
		os.Exit(1)
	}
}
