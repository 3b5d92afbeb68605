package main

import "github.com/heaplift/heaplift/cmd/heaplift/cmd"

func main() {
	cmd.Execute()
}
