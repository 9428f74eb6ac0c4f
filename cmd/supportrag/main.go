package main

import "supportrag/internal/cli"

func main() {
	cli.Execute()
}
