// Package main is the entry point for the netkit networking tool suite.
package main

import (
	"fmt"
	"os"

	"github.com/Albert24GG/pcom-assignments/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
