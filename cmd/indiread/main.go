package main

import (
	"os"

	"github.com/Zereker/indisocket/cmd/indiread/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
