package main

import (
	"os"

	"github.com/noah-isme/studenthub-portal/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
