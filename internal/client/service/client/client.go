// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package client

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/ChainSafe/chainstate/dot/telemetry"
	"github.com/ChainSafe/chainstate/dot/types"
	"github.com/ChainSafe/chainstate/internal/client/api"
	blockbuilder "github.com/ChainSafe/chainstate/internal/client/block-builder"
	"github.com/ChainSafe/chainstate/internal/client/consensus"
	"github.com/ChainSafe/chainstate/internal/client/executor"
	"github.com/ChainSafe/chainstate/internal/log"
	"github.com/ChainSafe/chainstate/internal/primitives/blockchain"
	statemachine "github.com/ChainSafe/chainstate/internal/primitives/state-machine"
	"github.com/ChainSafe/chainstate/internal/primitives/storage"
	"github.com/ChainSafe/chainstate/lib/common"
)

var logger = log.NewFromGlobal(log.AddContext("pkg", "client"))

// Client imports and finalizes blocks on top of a backend, executing them
// with a call executor, and serves the chain data and proofs.
type Client struct {
	backend    api.Backend
	executor   api.CallExecutor
	options    Options
	strategies executor.ExecutionStrategies
	telemetry  telemetry.Client
	metrics    *metrics

	// importLock serializes import operations, from their beginning to
	// the notifications they trigger.
	importLock sync.Mutex

	importingBlockMutex sync.RWMutex
	importingBlock      *common.Hash

	importSinks   *notificationSinks[api.BlockImportNotification]
	finalitySinks *notificationSinks[api.FinalityNotification]
}

var (
	_ consensus.BlockImport = (*Client)(nil)
	_ api.BlockchainEvents  = (*Client)(nil)
	_ blockbuilder.Provider = (*Client)(nil)
)

// NewWithGenesis returns a client over the backend. The genesis block is
// built from the genesis storage and committed as final if the backend is
// empty, otherwise it must match the stored genesis.
func NewWithGenesis(backend api.Backend, callExecutor api.CallExecutor,
	genesisStorage storage.Storage, options Options) (*Client, error) {
	options.setDefaults()
	m, err := newMetrics(options.Registerer)
	if err != nil {
		return nil, err
	}

	c := &Client{
		backend:       backend,
		executor:      callExecutor,
		options:       options,
		strategies:    *options.ExecutionStrategies,
		telemetry:     options.Telemetry,
		metrics:       m,
		importSinks:   newNotificationSinks[api.BlockImportNotification]("import"),
		finalitySinks: newNotificationSinks[api.FinalityNotification]("finality"),
	}

	genesis := genesisHeader(genesisStorage)
	genesisHash := genesis.Hash()

	storedGenesisHash := backend.Blockchain().Info().GenesisHash
	switch storedGenesisHash {
	case common.Hash{}:
		logger.Infof("initialising genesis block with hash %s and state root %s",
			genesisHash, genesis.StateRoot)
		err = c.LockImportAndRun(func(op *api.ClientImportOperation) error {
			root, err := op.Op.ResetStorage(genesisStorage)
			if err != nil {
				return err
			}
			if root != genesis.StateRoot {
				return fmt.Errorf("%w: state root %s, expected %s",
					blockchain.ErrGenesisInvalid, root, genesis.StateRoot)
			}
			return op.Op.SetBlockData(genesis, types.Body{}, nil, api.NewBlockStateFinal)
		})
		if err != nil {
			return nil, fmt.Errorf("committing genesis block: %w", err)
		}
	case genesisHash:
	default:
		return nil, fmt.Errorf("%w: stored genesis %s, built genesis %s",
			blockchain.ErrGenesisInvalid, storedGenesisHash, genesisHash)
	}

	version, err := c.RuntimeVersionAt(types.NewBlockIDFromHash(genesisHash))
	if err != nil {
		return nil, fmt.Errorf("reading genesis runtime version: %w", err)
	}
	if version.SpecName == "" {
		return nil, fmt.Errorf("%w: genesis runtime has no spec name", blockchain.ErrVersionInvalid)
	}

	c.metrics.setHeights(backend.Blockchain().Info())
	c.telemetry.SendMessage(telemetry.NewSystemConnectedTM(
		version.SpecName,
		&genesisHash,
		version.ImplName,
		options.Name,
		strconv.FormatInt(time.Now().Unix(), 10),
		strconv.FormatUint(uint64(version.SpecVersion), 10),
	))
	return c, nil
}

func genesisHeader(genesisStorage storage.Storage) *types.Header {
	return &types.Header{
		StateRoot:      statemachine.NewInMemoryBackend(genesisStorage).Root(),
		ExtrinsicsRoot: types.Body{}.ExtrinsicsRoot(),
	}
}

// LockImportAndRun runs f with a new import operation while holding the
// import lock. The operation is committed if f succeeds, and the
// notifications it staged are then sent.
func (c *Client) LockImportAndRun(f func(op *api.ClientImportOperation) error) error {
	c.importLock.Lock()
	defer c.importLock.Unlock()

	op, err := c.backend.BeginOperation()
	if err != nil {
		return err
	}
	clientOp := &api.ClientImportOperation{Op: op}

	err = f(clientOp)
	if err != nil {
		c.backend.AbortOperation(op)
		return err
	}

	err = c.backend.CommitOperation(op)
	if err != nil {
		c.backend.AbortOperation(op)
		return err
	}

	c.metrics.setHeights(c.backend.Blockchain().Info())
	c.notifyFinalized(clientOp.NotifyFinalized)
	c.notifyImported(clientOp.NotifyImported)
	return nil
}

// Backend returns the backend of the client.
func (c *Client) Backend() api.Backend {
	return c.backend
}

// Executor returns the call executor of the client.
func (c *Client) Executor() api.CallExecutor {
	return c.executor
}

// Info returns the blockchain info.
func (c *Client) Info() blockchain.Info {
	return c.backend.Blockchain().Info()
}

// Leaves returns the leaves of the chain, best first.
func (c *Client) Leaves() ([]common.Hash, error) {
	return c.backend.Blockchain().Leaves()
}

func (c *Client) expectHash(id types.BlockID) (common.Hash, error) {
	return blockchain.ExpectBlockHashFromID(c.backend.Blockchain(), id)
}

func (c *Client) expectHeader(id types.BlockID) (*types.Header, error) {
	hash, err := c.expectHash(id)
	if err != nil {
		return nil, err
	}
	return blockchain.ExpectHeader(c.backend.Blockchain(), hash)
}

// BlockStatus returns the status of the block.
func (c *Client) BlockStatus(id types.BlockID) (consensus.BlockStatus, error) {
	if hashID, ok := id.(types.BlockIDHash); ok {
		c.importingBlockMutex.RLock()
		importing := c.importingBlock != nil && *c.importingBlock == common.Hash(hashID)
		c.importingBlockMutex.RUnlock()
		if importing {
			return consensus.BlockStatusQueued, nil
		}
	}

	hash, err := blockchain.BlockHashFromID(c.backend.Blockchain(), id)
	if err != nil {
		return consensus.BlockStatusUnknown, err
	}
	if hash == nil {
		return consensus.BlockStatusUnknown, nil
	}
	return c.chainStatus(*hash)
}

// Header returns the header of the block, or nil if it is unknown.
func (c *Client) Header(id types.BlockID) (*types.Header, error) {
	return blockchain.HeaderByID(c.backend.Blockchain(), id)
}

// Body returns the body of the block, or nil if it is not stored.
func (c *Client) Body(id types.BlockID) (types.Body, error) {
	hash, err := c.expectHash(id)
	if err != nil {
		return nil, err
	}
	return c.backend.Blockchain().Body(hash)
}

// Justifications returns the justifications of the block, or nil.
func (c *Client) Justifications(id types.BlockID) (types.Justifications, error) {
	hash, err := c.expectHash(id)
	if err != nil {
		return nil, err
	}
	return c.backend.Blockchain().Justifications(hash)
}

// StateAt returns the state of the block. The caller must release it.
func (c *Client) StateAt(id types.BlockID) (api.State, error) {
	hash, err := c.expectHash(id)
	if err != nil {
		return nil, err
	}
	return c.backend.StateAt(hash)
}

// StorageAt returns the value of key in the state of the block, or nil.
func (c *Client) StorageAt(id types.BlockID, key []byte) ([]byte, error) {
	state, err := c.StateAt(id)
	if err != nil {
		return nil, err
	}
	defer state.Release()
	return state.Storage(key)
}

// ChildStorageAt returns the value of key in the child trie in the state
// of the block, or nil.
func (c *Client) ChildStorageAt(id types.BlockID, childKey, key []byte) ([]byte, error) {
	state, err := c.StateAt(id)
	if err != nil {
		return nil, err
	}
	defer state.Release()
	return state.ChildStorage(childKey, key)
}

// RuntimeVersionAt returns the runtime version at the block.
func (c *Client) RuntimeVersionAt(id types.BlockID) (types.RuntimeVersion, error) {
	hash, err := c.expectHash(id)
	if err != nil {
		return types.RuntimeVersion{}, err
	}
	return c.executor.RuntimeVersion(hash)
}

// Call executes method at the block and returns its encoded result.
// Changes to the state are dropped.
func (c *Client) Call(id types.BlockID, method string, callData []byte) ([]byte, error) {
	hash, err := c.expectHash(id)
	if err != nil {
		return nil, err
	}
	return c.executor.Call(hash, method, callData, c.strategies.Other)
}

// NewBlockAt returns a block builder on top of parent.
func (c *Client) NewBlockAt(parent common.Hash, inherentDigests types.Digest) (*blockbuilder.BlockBuilder, error) {
	header, err := blockchain.ExpectHeader(c.backend.Blockchain(), parent)
	if err != nil {
		return nil, err
	}
	manager := statemachine.ExecutionManager{Strategy: c.strategies.BlockConstruction}
	return blockbuilder.New(c.executor, c.backend, parent, header.Number, inherentDigests, manager)
}

// NewBlock returns a block builder on top of the best block.
func (c *Client) NewBlock(inherentDigests types.Digest) (*blockbuilder.BlockBuilder, error) {
	return c.NewBlockAt(c.Info().BestHash, inherentDigests)
}
