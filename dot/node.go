// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package dot

import (
	"context"
	"errors"
	"fmt"

	"github.com/ChainSafe/chaindb"
	"github.com/ChainSafe/chainstate/dot/telemetry"
	"github.com/ChainSafe/chainstate/internal/client/db"
	"github.com/ChainSafe/chainstate/internal/client/service/client"
	"github.com/ChainSafe/chainstate/internal/log"
	"github.com/ChainSafe/chainstate/internal/metrics"
	"github.com/ChainSafe/chainstate/internal/pprof"
	"github.com/ChainSafe/chainstate/lib/common"
	"github.com/ChainSafe/chainstate/lib/utils"
	"github.com/prometheus/client_golang/prometheus"
)

var logger log.LeveledLogger = log.NewFromGlobal(log.AddContext("pkg", "dot"))

// Node authors the development chain with an in-memory full client, and
// follows it with a light client persisted in the base path.
type Node struct {
	Name string

	cfg      *Config
	database chaindb.Database
	full     *client.Client
	light    *lightNode
	author   *devAuthor
	mailer   *telemetry.Mailer
	registry *prometheus.Registry
}

// InitNode initialises the light client database of the base path with
// the genesis block of the development chain.
func InitNode(cfg *Config) (err error) {
	setupLogger(cfg)
	logger.Infof("🕸️ initialising node with name %s and base path %s...",
		cfg.Global.Name, cfg.Global.BasePath)

	database, err := createDatabase(cfg)
	if err != nil {
		return err
	}
	defer closeDatabase(database, &err)

	storage, err := createLightStorage(cfg, database)
	if err != nil {
		return err
	}
	if genesisHash := storage.Info().GenesisHash; genesisHash != (common.Hash{}) {
		return fmt.Errorf("%w: genesis hash %s", ErrNodeInitialised, genesisHash)
	}

	light, err := createLightClient(cfg, storage, nil, telemetry.NewNoopMailer(), nil)
	if err != nil {
		return err
	}

	logger.Infof("node initialised with genesis hash %s", light.client.Info().GenesisHash)
	return nil
}

// NodeInitialized returns true if the database of the base path holds a
// chain.
func NodeInitialized(basepath string) bool {
	if !utils.PathExists(utils.DatabaseDir(basepath)) {
		return false
	}

	storage, closeStorage, err := OpenLightStorage(&Config{Global: GlobalConfig{BasePath: basepath}})
	if err != nil {
		logger.Errorf("failed to open light storage: %s", err)
		return false
	}
	defer closeStorage()

	return storage.Info().GenesisHash != common.Hash{}
}

// OpenLightStorage opens the light storage of the base path. The close
// function closes its database.
func OpenLightStorage(cfg *Config) (storage *db.LightStorage, closeFunc func(), err error) {
	database, err := createDatabase(cfg)
	if err != nil {
		return nil, nil, err
	}

	storage, err = createLightStorage(cfg, database)
	if err != nil {
		closeDatabase(database, &err)
		return nil, nil, err
	}

	closeFunc = func() {
		err := database.Close()
		if err != nil {
			logger.Errorf("failed to close database: %s", err)
		}
	}
	return storage, closeFunc, nil
}

// NewNode creates a node from its configuration. The node database must be
// initialised.
func NewNode(ctx context.Context, cfg *Config) (node *Node, err error) {
	setupLogger(cfg)
	logger.Infof("🕸️ initialising node services with name %s and base path %s...",
		cfg.Global.Name, cfg.Global.BasePath)

	node = &Node{
		Name: cfg.Global.Name,
		cfg:  cfg,
	}
	defer func() {
		if err != nil {
			node.close()
		}
	}()

	var registerer prometheus.Registerer
	if cfg.Global.PublishMetrics {
		node.registry = prometheus.NewRegistry()
		registerer = node.registry
	}

	node.mailer, err = createTelemetry(ctx, cfg)
	if err != nil {
		return nil, err
	}

	node.full, err = createFullClient(cfg, node.mailer, registerer)
	if err != nil {
		return nil, err
	}

	node.database, err = createDatabase(cfg)
	if err != nil {
		return nil, err
	}
	storage, err := createLightStorage(cfg, node.database)
	if err != nil {
		return nil, err
	}
	if storage.Info().GenesisHash == (common.Hash{}) {
		return nil, fmt.Errorf("%w: base path %s", ErrNodeNotInitialised, cfg.Global.BasePath)
	}

	node.light, err = createLightClient(cfg, storage, node.full, node.mailer, registerer)
	if err != nil {
		return nil, err
	}

	node.author = &devAuthor{
		full:          node.full,
		light:         node.light.client,
		finalityDepth: cfg.Dev.FinalityDepth,
	}
	return node, nil
}

// Start runs the node until ctx is canceled, then stops it.
func (n *Node) Start(ctx context.Context) (err error) {
	logger.Info("🕸️ starting node services...")
	defer n.close()

	if n.registry != nil {
		metricsServer := metrics.NewServer(n.cfg.Global.MetricsAddress, n.registry)
		err = metricsServer.Start()
		if err != nil {
			return fmt.Errorf("starting metrics server: %w", err)
		}
		defer func() {
			stopErr := metricsServer.Stop()
			if stopErr != nil && err == nil {
				err = stopErr
			}
		}()
	}

	if n.cfg.Pprof.Enabled {
		pprofLogger := log.NewFromGlobal(log.AddContext("pkg", "pprof"))
		pprofService := pprof.NewService(n.cfg.Pprof.Settings, pprofLogger)
		err = pprofService.Start()
		if err != nil {
			return fmt.Errorf("starting pprof server: %w", err)
		}
		defer func() {
			stopErr := pprofService.Stop()
			if stopErr != nil && err == nil {
				err = stopErr
			}
		}()
	}

	err = n.author.run(ctx, n.cfg.Dev.BlockTime)
	if err != nil {
		return fmt.Errorf("authoring development chain: %w", err)
	}
	logger.Info("stopping node services...")
	return nil
}

func (n *Node) close() {
	if n.mailer != nil {
		err := n.mailer.Close()
		if err != nil {
			logger.Warnf("failed to close telemetry connections: %s", err)
		}
		n.mailer = nil
	}

	if n.database != nil {
		var err error
		closeDatabase(n.database, &err)
		if err != nil {
			logger.Errorf("%s", err)
		}
		n.database = nil
	}
}

func closeDatabase(database chaindb.Database, errPtr *error) {
	err := database.Close()
	if err == nil {
		return
	}
	err = fmt.Errorf("closing database: %w", err)
	if *errPtr == nil {
		*errPtr = err
	} else {
		*errPtr = errors.Join(*errPtr, err)
	}
}
