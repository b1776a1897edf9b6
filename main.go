package main

import "Vedit/cmd"

func main() {
	cmd.Execute()
}
