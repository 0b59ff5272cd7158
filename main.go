package main

import (
	"resona/cmd"
)

func main() {
	cmd.Execute()
}
