package main

import "capresolve/internal/cli"

func main() {
	cli.Execute()
}
