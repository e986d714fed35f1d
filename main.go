package main

import "github.com/denigris/emplacamentos/cmd"

func main() {
	cmd.Execute()
}
