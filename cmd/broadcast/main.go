package main

import "broadcast/internal/cli"

func main() {
	cli.Execute()
}
