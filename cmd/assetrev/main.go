package main

import (
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/assetrev/cmd/assetrev/commands"
	"git.home.luguber.info/inful/assetrev/internal/foundation/errors"
	"git.home.luguber.info/inful/assetrev/internal/version"
)

func main() {
	cli := &commands.CLI{}
	global := &commands.Global{Out: os.Stdout}
	parser := kong.Parse(cli,
		kong.Name("assetrev"),
		kong.Description("Fingerprint, rewrite and publish static assets."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
		kong.Bind(global),
	)

	if err := parser.Run(global, cli); err != nil {
		errors.NewCLIErrorAdapter(cli.Verbose, global.Logger).HandleError(err)
	}
}
