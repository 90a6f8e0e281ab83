package main

import "github.com/kozaktomas/presence-station/cmd"

func main() {
	cmd.Execute()
}
