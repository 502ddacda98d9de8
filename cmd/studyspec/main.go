package main

import (
	"os"

	"github.com/Fuabioo/studyspec/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
