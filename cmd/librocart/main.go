// cmd/librocart/main.go
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stdin).Execute(); err != nil {
		os.Exit(1)
	}
}
