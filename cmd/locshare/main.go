package main

import "github.com/benmeehan/locshare/cmd/locshare/commands"

func main() {
	commands.Execute()
}
