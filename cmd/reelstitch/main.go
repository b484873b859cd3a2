package main

import "reelstitch/internal/cli"

func main() {
	cli.Main()
}
