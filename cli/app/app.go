// Package app assembles the top-level cli.App from each subcommand
// package: one New() that appends every subpackage's NewCommands().
package app

import (
	"fmt"
	"os"
	"runtime"

	"github.com/nspcc-dev/network-map-service/cli/admin"
	"github.com/nspcc-dev/network-map-service/cli/server"
	"github.com/urfave/cli/v2"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func versionPrinter(c *cli.Context) {
	_, _ = fmt.Fprintf(c.App.Writer, "network-map-service\nVersion: %s\nGoVersion: %s\n", Version, runtime.Version())
}

// New creates the network map service's cli.App with every command
// registered.
func New() *cli.App {
	cli.VersionPrinter = versionPrinter
	ctl := cli.NewApp()
	ctl.Name = "network-map-service"
	ctl.Version = Version
	ctl.Usage = "Network map service for a permissioned distributed ledger"
	ctl.ErrWriter = os.Stdout

	ctl.Commands = append(ctl.Commands, server.NewCommands()...)
	ctl.Commands = append(ctl.Commands, admin.NewCommands()...)
	return ctl
}
