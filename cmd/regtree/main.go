package main

import "github.com/dshills/regtree/internal/cli"

func main() {
	cli.Execute()
}
