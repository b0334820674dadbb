package main

import (
	"fmt"
	"os"

	"github.com/andreyvit/partkv/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "partkv:", err)
		os.Exit(1)
	}
}
