package main

import (
	"fmt"
	"os"

	"github.com/spec-kit/attendance-service/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "attendctl:", err)
		os.Exit(1)
	}
}
