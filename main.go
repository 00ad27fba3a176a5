package main

import "github.com/THPTUHA/iclocksim/cmd"

func main() {
	cmd.Execute()
}
