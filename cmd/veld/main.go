package main

import (
	"os"

	"github.com/veldlang/veld/pkg/cli"
)

func main() {
	os.Exit(cli.Entry(os.Args[1:], os.Stdout, os.Stderr))
}
