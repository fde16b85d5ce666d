// Command b3irpf computes the average cost positions, the capital gains and
// the monthly taxes of the investments traded on B3.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/etnz/irpf/cmd"
	"github.com/google/subcommands"
)

func main() {
	name := path.Base(os.Args[0])
	// answers the shell completion requests, then exits.
	cmd.Completion().Complete(name)

	commander := subcommands.NewCommander(flag.CommandLine, name)
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	for _, c := range cmd.Commands {
		commander.Register(c, "")
	}

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
