package main

import "github.com/indrora/ustar/tarc/cmd"

func main() {
	cmd.Execute()
}
