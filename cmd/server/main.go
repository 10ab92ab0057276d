package main

import "github.com/calendify/server/cmd/server/cmd"

func main() {
	cmd.Execute()
}
