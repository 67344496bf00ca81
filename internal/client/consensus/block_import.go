// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package consensus

import (
	"fmt"

	"github.com/ChainSafe/chainstate/dot/types"
	statemachine "github.com/ChainSafe/chainstate/internal/primitives/state-machine"
	"github.com/ChainSafe/chainstate/lib/common"
)

// ImportResult is the result of a block import. It is one of
// ImportResultImported, ImportResultAlreadyInChain, ImportResultKnownBad,
// ImportResultUnknownParent or ImportResultMissingState.
type ImportResult interface {
	fmt.Stringer
	isImportResult()
}

// ImportResultImported is returned for an imported block.
type ImportResultImported ImportedAux

// ImportResultAlreadyInChain is returned when the block is already in the
// chain.
type ImportResultAlreadyInChain struct{}

// ImportResultKnownBad is returned when the block or its parent is known to
// be bad.
type ImportResultKnownBad struct{}

// ImportResultUnknownParent is returned when the parent of the block is not
// in the chain.
type ImportResultUnknownParent struct{}

// ImportResultMissingState is returned when the block body cannot be
// executed because the state of its parent is not available.
type ImportResultMissingState struct{}

func (ImportResultImported) isImportResult()       {}
func (ImportResultAlreadyInChain) isImportResult() {}
func (ImportResultKnownBad) isImportResult()       {}
func (ImportResultUnknownParent) isImportResult()  {}
func (ImportResultMissingState) isImportResult()   {}

func (r ImportResultImported) String() string {
	return fmt.Sprintf("Imported(%+v)", ImportedAux(r))
}
func (ImportResultAlreadyInChain) String() string { return "AlreadyInChain" }
func (ImportResultKnownBad) String() string       { return "KnownBad" }
func (ImportResultUnknownParent) String() string  { return "UnknownParent" }
func (ImportResultMissingState) String() string   { return "MissingState" }

// ImportedAux is auxiliary data associated with an imported block.
type ImportedAux struct {
	// HeaderOnly is set when block body verification was skipped.
	HeaderOnly bool
	// ClearJustificationRequests clears all pending justification requests.
	ClearJustificationRequests bool
	// NeedsJustification requests a justification for the block.
	NeedsJustification bool
	// BadJustification is set when a bad justification was received.
	BadJustification bool
	// IsNewBest is set when the imported block is the new best block.
	IsNewBest bool
}

// ForkChoiceStrategy decides whether an imported block becomes the best
// block. It is either ForkChoiceLongestChain or ForkChoiceCustom.
type ForkChoiceStrategy interface {
	isForkChoiceStrategy()
}

// ForkChoiceLongestChain makes a block the best one if it is higher than the
// current best block.
type ForkChoiceLongestChain struct{}

// ForkChoiceCustom is a fork choice decided by the caller, true making the
// block the new best block.
type ForkChoiceCustom bool

func (ForkChoiceLongestChain) isForkChoiceStrategy() {}
func (ForkChoiceCustom) isForkChoiceStrategy()       {}

// BlockCheckParams is the data required to check the validity of a block.
type BlockCheckParams struct {
	Hash       common.Hash
	Number     uint64
	ParentHash common.Hash
	// AllowMissingState allows importing the block when the parent state is
	// missing, skipping state verification.
	AllowMissingState bool
	// ImportExisting re-validates an existing block.
	ImportExisting bool
}

// AuxiliaryEntry is an aux store write. A nil Data deletes Key.
type AuxiliaryEntry struct {
	Key  []byte
	Data []byte
}

// BlockImportParams is the data required to import a block.
type BlockImportParams struct {
	Origin BlockOrigin
	// Header is the header without consensus post digests applied, in the
	// state it comes out of the runtime.
	Header types.Header
	// Justification provided for the block from the outside, if any.
	Justification *types.Justification
	// PostDigests are digest items added after the runtime, like a seal.
	PostDigests []types.DigestItem
	// Body of the block, nil when only the header is imported.
	Body types.Body
	// Finalized implies instant finality of the block.
	Finalized bool
	// Auxiliary data written to the aux store in the same commit.
	Auxiliary []AuxiliaryEntry
	// ForkChoice of the import. Nil defaults to ForkChoiceLongestChain.
	ForkChoice ForkChoiceStrategy
	// ImportExisting re-imports a block that is already in the chain.
	ImportExisting bool
	// StorageChanges precomputed by block authoring. When set, the block is
	// not executed again.
	StorageChanges *statemachine.StorageChanges
}

// PostHeader returns the header with the post digests applied.
func (p *BlockImportParams) PostHeader() *types.Header {
	header := p.Header.DeepCopy()
	header.Digest = append(header.Digest, p.PostDigests...)
	return header
}

// PostHash returns the hash of the header with post digests applied.
func (p *BlockImportParams) PostHash() common.Hash {
	return p.PostHeader().Hash()
}

// CheckParams returns the check parameters of the block to import.
func (p *BlockImportParams) CheckParams() BlockCheckParams {
	return BlockCheckParams{
		Hash:           p.PostHash(),
		Number:         p.Header.Number,
		ParentHash:     p.Header.ParentHash,
		ImportExisting: p.ImportExisting,
	}
}

// BlockImport imports blocks.
type BlockImport interface {
	// CheckBlock checks the block preconditions.
	CheckBlock(params BlockCheckParams) (ImportResult, error)
	// ImportBlock imports a block. newCache holds blockchain cache entries
	// recorded at the block.
	ImportBlock(params BlockImportParams, newCache map[string][]byte) (ImportResult, error)
}
