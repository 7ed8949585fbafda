package main

import (
	"os"

	"github.com/stigoleg/pad-alive/internal/cli"
)

const appVersion = "0.1.0"

func main() {
	os.Exit(cli.Execute(appVersion))
}
