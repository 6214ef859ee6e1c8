package main

import (
	"os"

	"licensegate/cmd/licensectl/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
