package main

import "github.com/mozilla-ai/quickmcp/cmd"

func main() {
	cmd.Execute()
}
