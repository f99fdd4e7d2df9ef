package main

import "github.com/clintfred/ironoxide/internal/cli"

func main() {
	cli.Execute()
}
