package main

import (
	"os"

	"tryon-storefront/cmd/tryon/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
