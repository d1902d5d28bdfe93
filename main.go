package main

import "github.com/dukerupert/graphium/cmd"

func main() {
	cmd.Execute()
}
