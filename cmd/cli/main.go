package main

import (
	"mlfit/internal/commander"
)

func main() {
	cmd := commander.NewCommander()
	cmd.Start()
}
