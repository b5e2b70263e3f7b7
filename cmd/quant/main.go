package main

import "github.com/rustyeddy/quant/internal/cli"

func main() {
	cli.Execute()
}
