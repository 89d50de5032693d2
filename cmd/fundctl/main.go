// Command fundctl runs fund catalog and portfolio operations against the
// configured store without going through the gRPC server.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

var configFile = flag.String("config", "fundfolio.toml", "Configuration file path")

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")

	commander.Register(&refreshCmd{}, "catalog")
	commander.Register(&catalogCmd{}, "catalog")
	commander.Register(&portfolioCmd{}, "portfolio")
	commander.Register(&addCmd{}, "portfolio")
	commander.Register(&tokenCmd{}, "auth")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
