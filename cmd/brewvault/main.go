package main

import (
	"os"

	"github.com/dshills/brewvault/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
