package main

import (
	"fmt"
	"os"

	"github.com/jewel-tree/profile-post-watcher/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "watcher: %v\n", err)
		os.Exit(1)
	}
}
