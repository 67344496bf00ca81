// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/ChainSafe/chainstate/dot"
	"github.com/ChainSafe/chainstate/dot/types"
	"github.com/ChainSafe/chainstate/internal/client/cht"
	"github.com/ChainSafe/chainstate/internal/client/db"
	"github.com/ChainSafe/chainstate/internal/primitives/blockchain"
	"github.com/ChainSafe/chainstate/lib/common"
	"github.com/disiqueira/gotree"
	"github.com/urfave/cli"
)

var (
	// ErrNoBlockGiven is returned when neither a block number nor hash is given.
	ErrNoBlockGiven = errors.New("no block number or hash given")
	// ErrBlockNotFound is returned when the block is not in the database.
	ErrBlockNotFound = errors.New("block not found")
)

// initAction is the action for the "init" subcommand
func initAction(ctx *cli.Context) error {
	cfg, err := createDotConfig(ctx)
	if err != nil {
		return err
	}
	return dot.InitNode(cfg)
}

// withStorage runs f with the light storage of the configured base path.
func withStorage(ctx *cli.Context, f func(cfg *dot.Config, storage *db.LightStorage) error) error {
	cfg, err := createDotConfig(ctx)
	if err != nil {
		return err
	}

	if !dot.NodeInitialized(cfg.Global.BasePath) {
		return fmt.Errorf("%w: base path %s", dot.ErrNodeNotInitialised, cfg.Global.BasePath)
	}

	storage, closeStorage, err := dot.OpenLightStorage(cfg)
	if err != nil {
		return err
	}
	defer closeStorage()
	return f(cfg, storage)
}

// infoAction is the action for the "info" subcommand
func infoAction(ctx *cli.Context) error {
	return withStorage(ctx, func(_ *dot.Config, storage *db.LightStorage) error {
		return printInfo(ctx.App.Writer, storage)
	})
}

func printInfo(w io.Writer, storage *db.LightStorage) error {
	info := storage.Info()
	leaves, err := storage.Leaves()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "best:      #%d %s\nfinalized: #%d %s\ngenesis:   %s\nleaves:    %d\n",
		info.BestNumber, info.BestHash, info.FinalizedNumber, info.FinalizedHash,
		info.GenesisHash, len(leaves))
	return err
}

// headerAction is the action for the "header" subcommand
func headerAction(ctx *cli.Context) error {
	return withStorage(ctx, func(_ *dot.Config, storage *db.LightStorage) error {
		id, err := blockIDFromFlags(ctx)
		if err != nil {
			return err
		}
		header, err := blockchain.HeaderByID(storage, id)
		if err != nil {
			return err
		}
		if header == nil {
			return fmt.Errorf("%w: %s", ErrBlockNotFound, id)
		}
		_, err = fmt.Fprintln(ctx.App.Writer, header.String())
		return err
	})
}

func blockIDFromFlags(ctx *cli.Context) (types.BlockID, error) {
	if s := ctx.String(HashFlag.Name); s != "" {
		hash, err := common.HexToHash(s)
		if err != nil {
			return nil, fmt.Errorf("parsing block hash: %w", err)
		}
		return types.NewBlockIDFromHash(hash), nil
	}
	if s := ctx.String(NumberFlag.Name); s != "" {
		number, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing block number: %w", err)
		}
		return types.NewBlockIDFromNumber(number), nil
	}
	return nil, ErrNoBlockGiven
}

// chtRootAction is the action for the "cht-root" subcommand
func chtRootAction(ctx *cli.Context) error {
	return withStorage(ctx, func(cfg *dot.Config, storage *db.LightStorage) error {
		s := ctx.String(NumberFlag.Name)
		if s == "" {
			return ErrNoBlockGiven
		}
		number, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return fmt.Errorf("parsing block number: %w", err)
		}

		chtSize := cfg.Client.CHTSize
		if chtSize == 0 {
			chtSize = cht.Size
		}
		root, err := storage.HeaderCHTRoot(chtSize, number)
		if err != nil {
			return err
		}
		chtNumber, ok := cht.BlockToCHTNumber(chtSize, number)
		if root == nil || !ok {
			_, err = fmt.Fprintf(ctx.App.Writer, "no CHT built for block #%d\n", number)
			return err
		}
		_, err = fmt.Fprintf(ctx.App.Writer, "CHT #%d: %s\n", chtNumber, *root)
		return err
	})
}

// leavesAction is the action for the "leaves" subcommand
func leavesAction(ctx *cli.Context) error {
	return withStorage(ctx, func(_ *dot.Config, storage *db.LightStorage) error {
		return printLeaves(ctx.App.Writer, storage)
	})
}

// printLeaves prints the leaves, best first, and the block tree rooted at
// the last finalized block.
func printLeaves(w io.Writer, storage *db.LightStorage) error {
	leaves, err := storage.Leaves()
	if err != nil {
		return err
	}
	for _, leaf := range leaves {
		number, err := storage.Number(leaf)
		if err != nil {
			return err
		}
		if number == nil {
			return fmt.Errorf("%w: leaf %s", ErrBlockNotFound, leaf)
		}
		_, err = fmt.Fprintf(w, "#%d %s\n", *number, leaf)
		if err != nil {
			return err
		}
	}

	info := storage.Info()
	tree := gotree.New(fmt.Sprintf("#%d %s", info.FinalizedNumber, info.FinalizedHash.Short()))
	err = addChildren(storage, tree, info.FinalizedHash, info.FinalizedNumber+1)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(w, tree.Print())
	return err
}

func addChildren(storage *db.LightStorage, tree gotree.Tree, parent common.Hash, number uint64) error {
	children, err := storage.Children(parent)
	if err != nil {
		return err
	}
	for _, child := range children {
		sub := tree.Add(fmt.Sprintf("#%d %s", number, child.Short()))
		err = addChildren(storage, sub, child, number+1)
		if err != nil {
			return err
		}
	}
	return nil
}

// exportConfigAction is the action for the "export-config" subcommand
func exportConfigAction(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return fmt.Errorf("expected one file argument, got %d", ctx.NArg())
	}
	cfg, err := createDotConfig(ctx)
	if err != nil {
		return err
	}
	return dot.ExportTomlConfig(dotConfigToToml(cfg), ctx.Args().First())
}

// serveAction is the action for the "serve" subcommand
func serveAction(ctx *cli.Context) error {
	cfg, err := createDotConfig(ctx)
	if err != nil {
		return err
	}

	signalCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	node, err := dot.NewNode(signalCtx, cfg)
	if err != nil {
		return fmt.Errorf("creating node: %w", err)
	}
	logger.Info("starting node " + node.Name + "...")
	return node.Start(signalCtx)
}
