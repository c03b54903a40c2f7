package main

import (
	"os"

	"github.com/PolarWolf314/syncany/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
