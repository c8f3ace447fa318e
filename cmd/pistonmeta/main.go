package main

import (
	"github.com/piston-launch/pistonmeta/cli"
)

func main() {
	cli.Execute()
}
