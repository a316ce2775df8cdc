package main

import "bqgate/internal/cli"

func main() {
	cli.Execute()
}
