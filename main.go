package main

import "handoff-client/cmd"

func main() {
	cmd.Run()
}
