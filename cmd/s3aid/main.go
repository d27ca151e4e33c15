package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"s3aid/internal/cli"
)

func main() {
	if err := cli.Run(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "s3aid: %v\n", err)
		os.Exit(1)
	}
}
