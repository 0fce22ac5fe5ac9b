// Command housectl works with the housing price document from a terminal:
// statistics report, CSV export and import, save history, remote settings
// and the Sheets mirror authorization.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"

	"housetrend/internal/cli"
)

// commands lists every housectl subcommand.
var commands = []subcommands.Command{
	&statsCmd{},
	&exportCmd{},
	&importCmd{},
	&historyCmd{},
	&remoteCmd{},
	&sheetsAuthCmd{},
}

func main() {
	cli.LoadEnvFile()
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	for _, c := range commands {
		commander.Register(c, "")
	}

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
