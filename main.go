package main

import "github.com/derickschaefer/bodacc/cmd"

func main() {
	cmd.Execute()
}
