package main

import (
	"github.com/deploymenttheory/go-btrfs/cmd"
)

func main() {
	cmd.Execute()
}
