// Command network-map-service runs the Network Map Service: the HTTP API,
// the Serialized Event Processor, and the read-only admin inspection
// subcommands, wired together by cli/app.
package main

import (
	"fmt"
	"os"

	"github.com/nspcc-dev/network-map-service/cli/app"
)

func main() {
	ctl := app.New()
	if err := ctl.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
