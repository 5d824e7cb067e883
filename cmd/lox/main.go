package main

import "github.com/funvibe/lox/pkg/cli"

func main() {
	cli.Run()
}
