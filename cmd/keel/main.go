package main

import "github.com/rzbill/keel/pkg/cli/cmd"

func main() {
	cmd.Execute()
}
