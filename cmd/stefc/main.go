// Command stefc validates stef schemas, emits their canonical IR and
// generated Go codecs, and encodes or decodes stef wire bytes.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/stef/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "stefc:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
