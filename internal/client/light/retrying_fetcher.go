// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package light

import (
	"context"
	"fmt"
	"time"

	"github.com/ChainSafe/chainstate/dot/types"
	"github.com/ChainSafe/chainstate/internal/log"
	"github.com/ChainSafe/chainstate/internal/primitives/blockchain"
	"github.com/ChainSafe/chainstate/internal/primitives/state-machine/changestrie"
)

var logger = log.NewFromGlobal(log.AddContext("pkg", "light"))

// DefaultRetryCount is the number of retries of a request which does not
// set its own retry count.
const DefaultRetryCount uint = 1

// RetryingFetcher asks a Fetcher for remote data and checks the answers
// with a FetchChecker. Failed fetches and answers failing their checks are
// retried.
type RetryingFetcher struct {
	fetcher    Fetcher
	checker    FetchChecker
	retryWait  time.Duration
	retryCount uint
}

var _ CheckedFetcher = (*RetryingFetcher)(nil)

// NewRetryingFetcher returns a fetcher waiting retryWait between attempts.
func NewRetryingFetcher(fetcher Fetcher, checker FetchChecker, retryWait time.Duration) *RetryingFetcher {
	return &RetryingFetcher{
		fetcher:    fetcher,
		checker:    checker,
		retryWait:  retryWait,
		retryCount: DefaultRetryCount,
	}
}

// SetRetryCount sets the number of retries of the requests which do not
// set their own retry count.
func (f *RetryingFetcher) SetRetryCount(count uint) {
	f.retryCount = count
}

func (f *RetryingFetcher) retries(requestRetryCount *uint) uint {
	if requestRetryCount != nil {
		return *requestRetryCount
	}
	return f.retryCount
}

func retry[T any](ctx context.Context, retryWait time.Duration, retries uint,
	request string, f func() (T, error)) (value T, err error) {
	var lastErr error
	for attempt := uint(0); attempt <= retries; attempt++ {
		if ctx.Err() != nil {
			return value, fmt.Errorf("%w: %s: %w", blockchain.ErrRemoteFetchCancelled, request, ctx.Err())
		}

		value, lastErr = f()
		if lastErr == nil {
			return value, nil
		}
		logger.Debugf("remote %s request failed on attempt %d/%d: %s", request, attempt+1, retries+1, lastErr)

		if attempt == retries {
			break
		}
		timer := time.NewTimer(retryWait)
		select {
		case <-ctx.Done():
			timer.Stop()
		case <-timer.C:
		}
	}

	return value, fmt.Errorf("%w: %s after %d attempts: %w",
		blockchain.ErrRemoteFetchFailed, request, retries+1, lastErr)
}

// Header implements CheckedFetcher.
func (f *RetryingFetcher) Header(ctx context.Context, request RemoteHeaderRequest) (*types.Header, error) {
	return retry(ctx, f.retryWait, f.retries(request.RetryCount), "header", func() (*types.Header, error) {
		header, proof, err := f.fetcher.RemoteHeader(ctx, request)
		if err != nil {
			return nil, err
		}
		return f.checker.CheckHeaderProof(request, header, proof)
	})
}

// Read implements CheckedFetcher.
func (f *RetryingFetcher) Read(ctx context.Context, request RemoteReadRequest) (map[string][]byte, error) {
	return retry(ctx, f.retryWait, f.retries(request.RetryCount), "read", func() (map[string][]byte, error) {
		proof, err := f.fetcher.RemoteRead(ctx, request)
		if err != nil {
			return nil, err
		}
		return f.checker.CheckReadProof(request, proof)
	})
}

// ReadChild implements CheckedFetcher.
func (f *RetryingFetcher) ReadChild(ctx context.Context, request RemoteReadChildRequest) (
	map[string][]byte, error) {
	return retry(ctx, f.retryWait, f.retries(request.RetryCount), "child read", func() (map[string][]byte, error) {
		proof, err := f.fetcher.RemoteReadChild(ctx, request)
		if err != nil {
			return nil, err
		}
		return f.checker.CheckReadChildProof(request, proof)
	})
}

// Call implements CheckedFetcher.
func (f *RetryingFetcher) Call(ctx context.Context, request RemoteCallRequest) ([]byte, error) {
	return retry(ctx, f.retryWait, f.retries(request.RetryCount), "call "+request.Method, func() ([]byte, error) {
		proof, err := f.fetcher.RemoteCall(ctx, request)
		if err != nil {
			return nil, err
		}
		return f.checker.CheckExecutionProof(request, proof)
	})
}

// Changes implements CheckedFetcher.
func (f *RetryingFetcher) Changes(ctx context.Context, request RemoteChangesRequest) (
	[]changestrie.BlockExtrinsic, error) {
	return retry(ctx, f.retryWait, f.retries(request.RetryCount), "changes", func() ([]changestrie.BlockExtrinsic, error) {
		proof, err := f.fetcher.RemoteChanges(ctx, request)
		if err != nil {
			return nil, err
		}
		return f.checker.CheckChangesProof(request, proof)
	})
}

// Body implements CheckedFetcher.
func (f *RetryingFetcher) Body(ctx context.Context, request RemoteBodyRequest) (types.Body, error) {
	return retry(ctx, f.retryWait, f.retries(request.RetryCount), "body", func() (types.Body, error) {
		body, err := f.fetcher.RemoteBody(ctx, request)
		if err != nil {
			return nil, err
		}
		return f.checker.CheckBody(request, body)
	})
}
