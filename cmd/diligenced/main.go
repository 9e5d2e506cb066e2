package main

import "github.com/vietddude/diligence/internal/cli"

func main() {
	cli.Execute()
}
