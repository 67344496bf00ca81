// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package dot

import (
	"context"
	"fmt"

	"github.com/ChainSafe/chaindb"
	"github.com/ChainSafe/chainstate/dot/telemetry"
	"github.com/ChainSafe/chainstate/dot/types"
	"github.com/ChainSafe/chainstate/internal/client/db"
	"github.com/ChainSafe/chainstate/internal/client/executor"
	"github.com/ChainSafe/chainstate/internal/client/executor/testruntime"
	"github.com/ChainSafe/chainstate/internal/client/inmemory"
	"github.com/ChainSafe/chainstate/internal/client/light"
	"github.com/ChainSafe/chainstate/internal/client/service/client"
	"github.com/ChainSafe/chainstate/internal/log"
	"github.com/ChainSafe/chainstate/internal/primitives/storage"
	"github.com/ChainSafe/chainstate/lib/common"
	"github.com/ChainSafe/chainstate/lib/utils"
	"github.com/prometheus/client_golang/prometheus"
)

func createDatabase(cfg *Config) (chaindb.Database, error) {
	return db.NewDatabase(utils.DatabaseDir(cfg.Global.BasePath), false)
}

func createLightStorage(cfg *Config, database chaindb.Database) (*db.LightStorage, error) {
	storage, err := db.NewLightStorage(database, db.Options{
		CHTSize:         cfg.Client.CHTSize,
		HeaderCacheSize: cfg.Client.HeaderCacheSize,
	})
	if err != nil {
		return nil, fmt.Errorf("opening light storage: %w", err)
	}
	return storage, nil
}

// newCodeExecutor returns an executor running the development runtime
// natively, and the runtime code found on chain otherwise.
func newCodeExecutor() *executor.Executor {
	return executor.NewExecutor(testruntime.New(testruntime.DefaultVersion()),
		func(code []byte) (executor.Runtime, error) {
			runtime, err := testruntime.Load(code)
			if err != nil {
				return nil, err
			}
			return runtime, nil
		}, 0)
}

// devGenesisStorage returns the genesis storage of the development chain,
// with changes tries enabled.
func devGenesisStorage() (storage.Storage, error) {
	genesisStorage := storage.NewStorage()
	genesisStorage.Set(common.CodeKey, testruntime.Code(testruntime.DefaultVersion()))
	config, err := types.Encode(types.ChangesTrieConfiguration{})
	if err != nil {
		return storage.Storage{}, fmt.Errorf("encoding changes trie configuration: %w", err)
	}
	genesisStorage.Set(common.ChangesTrieConfigKey, config)
	return genesisStorage, nil
}

func clientOptions(cfg *Config, role string, mailer telemetry.Client,
	registerer prometheus.Registerer) client.Options {
	options := client.Options{
		Name:                      cfg.Global.Name,
		FinalityNotificationLimit: cfg.Client.FinalityNotificationLimit,
		CHTSize:                   cfg.Client.CHTSize,
		Telemetry:                 mailer,
	}
	if registerer != nil {
		options.Registerer = prometheus.WrapRegistererWith(prometheus.Labels{"role": role}, registerer)
	}
	return options
}

// createFullClient returns the in-memory full client authoring the
// development chain.
func createFullClient(cfg *Config, mailer telemetry.Client, registerer prometheus.Registerer) (
	*client.Client, error) {
	genesisStorage, err := devGenesisStorage()
	if err != nil {
		return nil, err
	}

	backend := inmemory.NewBackend(inmemory.BackendOptions{
		Blockchain:   inmemory.Options{CHTSize: cfg.Client.CHTSize},
		StatePruning: cfg.Client.StatePruning,
	})
	full, err := client.NewWithGenesis(backend, executor.NewLocalCallExecutor(backend, newCodeExecutor()),
		genesisStorage, clientOptions(cfg, "full", mailer, registerer))
	if err != nil {
		return nil, fmt.Errorf("creating full client: %w", err)
	}
	return full, nil
}

// lightNode is a light client with the fetcher of its remote requests.
type lightNode struct {
	client  *client.Client
	storage *db.LightStorage
	fetcher *light.FetcherRef
}

// createLightClient returns a light client persisted in storage. Its remote
// requests are served by full, and are unavailable when full is nil.
func createLightClient(cfg *Config, storage *db.LightStorage, full *client.Client,
	mailer telemetry.Client, registerer prometheus.Registerer) (*lightNode, error) {
	genesisStorage, err := devGenesisStorage()
	if err != nil {
		return nil, err
	}

	codeExecutor := newCodeExecutor()
	fetcher := light.NewFetcherRef(nil)
	if full != nil {
		retrying := light.NewRetryingFetcher(light.NewLocalFetcher(full),
			light.NewLightDataChecker(storage, codeExecutor, cfg.Client.CHTSize), cfg.Light.RetryWait)
		retrying.SetRetryCount(cfg.Light.RetryCount)
		fetcher.Set(retrying)
	}

	backend := light.NewBackend(storage, fetcher, cfg.Client.CHTSize)
	callExecutor := light.NewGenesisCallExecutor(backend,
		executor.NewLocalCallExecutor(backend, codeExecutor),
		light.NewRemoteCallExecutor(backend.LightBlockchain(), fetcher, codeExecutor))

	c, err := client.NewWithGenesis(backend, callExecutor, genesisStorage,
		clientOptions(cfg, "light", mailer, registerer))
	if err != nil {
		return nil, fmt.Errorf("creating light client: %w", err)
	}
	return &lightNode{
		client:  c,
		storage: storage,
		fetcher: fetcher,
	}, nil
}

// createTelemetry connects to the configured telemetry endpoints. The
// mailer drops every message when telemetry is disabled.
func createTelemetry(ctx context.Context, cfg *Config) (*telemetry.Mailer, error) {
	mailerLogger := log.NewFromGlobal(log.AddContext("pkg", "telemetry"))
	mailer, err := telemetry.BootstrapMailer(ctx, cfg.Telemetry.Endpoints, cfg.Telemetry.Enabled, mailerLogger)
	if err != nil {
		return nil, fmt.Errorf("creating telemetry mailer: %w", err)
	}
	return mailer, nil
}
