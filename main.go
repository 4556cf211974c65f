package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
	"github.com/terassyi/tunstack/cmd"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")

	subcommands.Register(&cmd.RunCommand{}, "")
	subcommands.Register(&cmd.DumpCommand{}, "")

	flag.Parse()
	ctx := context.Background()
	os.Exit(int(subcommands.Execute(ctx)))
}
