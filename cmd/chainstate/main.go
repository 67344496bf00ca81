// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package main

import (
	"fmt"
	"os"

	"github.com/ChainSafe/chainstate/internal/log"
	"github.com/urfave/cli"
)

var logger log.LeveledLogger = log.NewFromGlobal(log.AddContext("pkg", "cmd"))

var (
	app = cli.NewApp()

	// initCommand defines the "init" subcommand (ie, `chainstate init`)
	initCommand = cli.Command{
		Action:    initAction,
		Name:      "init",
		Usage:     "Initialise the light client database with the development chain genesis",
		ArgsUsage: "",
		Flags:     GlobalFlags,
		Category:  "INIT",
		Description: "The init command writes the genesis block of the development chain to the database.\n" +
			"\tUsage: chainstate init --basepath ~/.chainstate/dev",
	}
	// infoCommand defines the "info" subcommand (ie, `chainstate info`)
	infoCommand = cli.Command{
		Action:   infoAction,
		Name:     "info",
		Usage:    "Print the best, finalized and genesis blocks of the database",
		Flags:    GlobalFlags,
		Category: "QUERY",
	}
	// headerCommand defines the "header" subcommand (ie, `chainstate header`)
	headerCommand = cli.Command{
		Action:   headerAction,
		Name:     "header",
		Usage:    "Print a stored header, by number or hash",
		Flags:    HeaderFlags,
		Category: "QUERY",
		Description: "The header command prints a header of the database.\n" +
			"\tUsage: chainstate header --number 42",
	}
	// chtRootCommand defines the "cht-root" subcommand (ie, `chainstate cht-root`)
	chtRootCommand = cli.Command{
		Action:   chtRootAction,
		Name:     "cht-root",
		Usage:    "Print the root of the header CHT covering a block",
		Flags:    CHTRootFlags,
		Category: "QUERY",
	}
	// leavesCommand defines the "leaves" subcommand (ie, `chainstate leaves`)
	leavesCommand = cli.Command{
		Action:   leavesAction,
		Name:     "leaves",
		Usage:    "Print the leaves of the block tree, best first",
		Flags:    GlobalFlags,
		Category: "QUERY",
	}
	// exportConfigCommand defines the "export-config" subcommand (ie, `chainstate export-config`)
	exportConfigCommand = cli.Command{
		Action:    exportConfigAction,
		Name:      "export-config",
		Usage:     "Export the effective configuration to a toml file",
		ArgsUsage: "<file>",
		Flags:     ServeFlags,
		Category:  "CONFIG",
		Description: "The export-config command writes the configuration built from the defaults, " +
			"the --config file and the flags.\n" +
			"\tUsage: chainstate export-config --config ./config.toml --log dbug ./exported.toml",
	}
	// serveCommand defines the "serve" subcommand (ie, `chainstate serve`)
	serveCommand = cli.Command{
		Action:   serveAction,
		Name:     "serve",
		Usage:    "Author the development chain and follow it with the light client",
		Flags:    ServeFlags,
		Category: "NODE",
		Description: "The serve command runs until interrupted.\n" +
			"\tUsage: chainstate serve --basepath ~/.chainstate/dev --publish-metrics",
	}
)

// init initialises the cli application
func init() {
	app.Name = "chainstate"
	app.Usage = "Blockchain client state: block import, finality, CHTs and light client proofs"
	app.Version = "0.1.0"
	app.Commands = []cli.Command{
		initCommand,
		infoCommand,
		headerCommand,
		chtRootCommand,
		leavesCommand,
		exportConfigCommand,
		serveCommand,
	}
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
