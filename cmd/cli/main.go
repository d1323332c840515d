package main

import (
	"fmt"
	"os"

	"redirect-mgmt-go/pkg/cli/links"
)

func main() {
	cmd := newRootCmd()
	cmd.SilenceErrors = true
	if err := cmd.Execute(); err != nil {
		fmt.Fprint(os.Stderr, links.FormatErrorMessage(err))
		os.Exit(1)
	}
}
