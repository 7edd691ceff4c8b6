package main

import (
	"os"

	"ui_harness/presentation/cli"
)

func main() {
	os.Exit(cli.Execute())
}
