package main

import "pxocore/cmd/client/cmd"

func main() {
	cmd.Execute()
}
