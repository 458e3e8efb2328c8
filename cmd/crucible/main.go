package main

import "github.com/crucible-sandbox/crucible/cmd/crucible/cmd"

func main() {
	cmd.Execute()
}
