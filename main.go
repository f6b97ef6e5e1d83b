package main

import "github.com/bobbylite/enrollhub/cmd"

func main() {
	cmd.Execute()
}
