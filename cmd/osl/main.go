package main

import (
	"os"

	"github.com/OpenStreetlifting/openstreetlifting-backend/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
