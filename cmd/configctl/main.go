// Command configctl validates catalogs, evaluates configurations offline
// and imports catalogs into the database.
package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes
const (
	exitSuccess = 0
	exitInvalid = 1 // catalog or configuration did not validate
	exitError   = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	root := newRootCmd()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		var exit *codeError
		if errors.As(err, &exit) {
			return exit.code
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		return exitError
	}
	return exitSuccess
}
