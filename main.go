package main

import "github.com/giygas/drugbase-api/commands"

func main() {
	commands.Execute()
}
