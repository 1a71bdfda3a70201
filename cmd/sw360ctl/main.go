package main

import "sw360-console/cmd/sw360ctl/cmd"

func main() {
	cmd.Execute()
}
