package main

import "snowbook/cmd"

func main() {
	cmd.Execute()
}
