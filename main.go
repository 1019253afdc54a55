package main

import "github.com/deskrelay/deskrelay/cmd"

func main() {
	cmd.Execute()
}
