package main

import "github.com/filekit/dupescan/cmd"

func main() {
	cmd.Execute()
}
