package main

import "mediarelay/cmd"

func main() {
	cmd.Execute()
}
