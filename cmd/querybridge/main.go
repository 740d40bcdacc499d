package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/querybridge/querybridge/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		// Commands format their own error output; anything surfacing here
		// (flag errors, unexpected failures) still needs one line.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
