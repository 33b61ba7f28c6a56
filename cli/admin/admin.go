// Package admin implements the read-only inspection subcommands: they
// open the configured database directly (no running service required) and
// render notaries, nodes, whitelist entries, and the current parameters
// document for operator debugging. Public keys are rendered in base58
// (github.com/mr-tron/base58) rather than raw hex, for compactness.
package admin

import (
	"fmt"
	"path/filepath"

	"github.com/mr-tron/base58"
	"github.com/nspcc-dev/network-map-service/cli/options"
	"github.com/nspcc-dev/network-map-service/pkg/mapdoc"
	"github.com/nspcc-dev/network-map-service/pkg/store"
	"github.com/urfave/cli/v2"
)

const boltFileName = "network-map.db"

// NewCommands returns the "admin" command group.
func NewCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "admin",
			Usage: "Read-only inspection of the network map service's state",
			Subcommands: []*cli.Command{
				{
					Name:   "notaries",
					Usage:  "List the current notary set",
					Action: listNotaries,
					Flags:  options.Flags,
				},
				{
					Name:   "nodes",
					Usage:  "List registered node infos",
					Action: listNodes,
					Flags:  options.Flags,
				},
				{
					Name:   "whitelist",
					Usage:  "List whitelisted contract implementations",
					Action: listWhitelist,
					Flags:  options.Flags,
				},
				{
					Name:   "current-parameters",
					Usage:  "Show the currently active network parameters",
					Action: showCurrentParameters,
					Flags:  options.Flags,
				},
			},
		},
	}
}

func openReadOnlyDB(ctx *cli.Context) (*store.BoltDB, error) {
	cfg, err := options.GetConfigFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return store.OpenBoltDB(filepath.Join(cfg.DB.Dir, boltFileName))
}

func currentParameters(db *store.BoltDB) (mapdoc.Hash, *mapdoc.NetworkParameters, error) {
	text, err := store.NewBoltTextStore(db, mapdoc.CollectionText)
	if err != nil {
		return mapdoc.Hash{}, nil, err
	}
	hex, err := text.Get(mapdoc.CurrentParametersKey)
	if err != nil {
		return mapdoc.Hash{}, nil, fmt.Errorf("read current-parameters pointer: %w", err)
	}
	hash, err := mapdoc.HashFromHex(hex)
	if err != nil {
		return mapdoc.Hash{}, nil, err
	}
	params, err := store.NewBoltBlobStore(db, mapdoc.CollectionSignedNetworkParameters)
	if err != nil {
		return mapdoc.Hash{}, nil, err
	}
	blob, err := params.Get(hash.String())
	if err != nil {
		return mapdoc.Hash{}, nil, err
	}
	raw, _, err := store.DecodeEnvelope(blob)
	if err != nil {
		return mapdoc.Hash{}, nil, err
	}
	doc, err := mapdoc.DecodeNetworkParameters(raw)
	if err != nil {
		return mapdoc.Hash{}, nil, err
	}
	return hash, doc, nil
}

func listNotaries(ctx *cli.Context) error {
	db, err := openReadOnlyDB(ctx)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer func() { _ = db.Close() }()

	_, params, err := currentParameters(db)
	if err != nil {
		return cli.Exit(err, 1)
	}
	if len(params.Notaries) == 0 {
		fmt.Fprintln(ctx.App.Writer, "(no notaries)")
		return nil
	}
	for _, n := range params.Notaries {
		fmt.Fprintf(ctx.App.Writer, "%s\tvalidating=%t\tnameHash=%s\n", n.Identity, n.Validating, n.NameHash())
	}
	return nil
}

func listNodes(ctx *cli.Context) error {
	db, err := openReadOnlyDB(ctx)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer func() { _ = db.Close() }()

	nodeInfo, err := store.NewBoltBlobStore(db, mapdoc.CollectionSignedNodeInfo)
	if err != nil {
		return cli.Exit(err, 1)
	}
	all, err := nodeInfo.GetAll()
	if err != nil {
		return cli.Exit(err, 1)
	}
	if len(all) == 0 {
		fmt.Fprintln(ctx.App.Writer, "(no nodes)")
		return nil
	}
	for key, blob := range all {
		raw, _, err := store.DecodeEnvelope(blob)
		if err != nil {
			fmt.Fprintf(ctx.App.Writer, "%s\t<decode error: %s>\n", key, err)
			continue
		}
		info, err := mapdoc.DecodeNodeInfo(raw)
		if err != nil {
			fmt.Fprintf(ctx.App.Writer, "%s\t<decode error: %s>\n", key, err)
			continue
		}
		for _, id := range info.Identities {
			fmt.Fprintf(ctx.App.Writer, "%s\t%s\tkey=%s\taddrs=%v\n", key, id.Name, base58.Encode(id.PublicKey), info.Addresses)
		}
	}
	return nil
}

func listWhitelist(ctx *cli.Context) error {
	db, err := openReadOnlyDB(ctx)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer func() { _ = db.Close() }()

	_, params, err := currentParameters(db)
	if err != nil {
		return cli.Exit(err, 1)
	}
	if params.Whitelist == nil || params.Whitelist.Len() == 0 {
		fmt.Fprintln(ctx.App.Writer, "(empty whitelist)")
		return nil
	}
	for _, fqn := range params.Whitelist.FQNs() {
		for _, h := range params.Whitelist.Attachments(fqn) {
			fmt.Fprintf(ctx.App.Writer, "%s: %s\n", fqn, h)
		}
	}
	return nil
}

func showCurrentParameters(ctx *cli.Context) error {
	db, err := openReadOnlyDB(ctx)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer func() { _ = db.Close() }()

	hash, params, err := currentParameters(db)
	if err != nil {
		return cli.Exit(err, 1)
	}
	fmt.Fprintf(ctx.App.Writer, "hash: %s\n", hash)
	fmt.Fprintf(ctx.App.Writer, "epoch: %d\n", params.Epoch)
	fmt.Fprintf(ctx.App.Writer, "minPlatformVersion: %d\n", params.MinimumPlatformVersion)
	fmt.Fprintf(ctx.App.Writer, "maxMessageSize: %d\n", params.MaxMessageSize)
	fmt.Fprintf(ctx.App.Writer, "maxTransactionSize: %d\n", params.MaxTransactionSize)
	fmt.Fprintf(ctx.App.Writer, "modifiedTime: %s\n", params.ModifiedTime)
	fmt.Fprintf(ctx.App.Writer, "notaries: %d\n", len(params.Notaries))
	return nil
}
