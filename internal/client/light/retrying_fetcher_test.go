// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package light

import (
	"context"
	"errors"
	"testing"

	"github.com/ChainSafe/chainstate/dot/types"
	"github.com/ChainSafe/chainstate/internal/primitives/blockchain"
	"github.com/ChainSafe/chainstate/internal/primitives/trie"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func Test_RetryingFetcher_Header(t *testing.T) {
	t.Parallel()

	errTest := errors.New("test error")
	header := &types.Header{Number: 1}
	proof := trie.StorageProof{{1}}

	testCases := map[string]struct {
		retryCount  *uint
		setup       func(fetcher *MockFetcher, checker *MockFetchChecker, request RemoteHeaderRequest)
		expected    *types.Header
		errSentinel error
	}{
		"first_attempt": {
			setup: func(fetcher *MockFetcher, checker *MockFetchChecker, request RemoteHeaderRequest) {
				fetcher.EXPECT().RemoteHeader(gomock.Any(), request).Return(header, proof, nil)
				checker.EXPECT().CheckHeaderProof(request, header, proof).Return(header, nil)
			},
			expected: header,
		},
		"fetch_retried": {
			setup: func(fetcher *MockFetcher, checker *MockFetchChecker, request RemoteHeaderRequest) {
				gomock.InOrder(
					fetcher.EXPECT().RemoteHeader(gomock.Any(), request).Return(nil, nil, errTest),
					fetcher.EXPECT().RemoteHeader(gomock.Any(), request).Return(header, proof, nil),
				)
				checker.EXPECT().CheckHeaderProof(request, header, proof).Return(header, nil)
			},
			expected: header,
		},
		"invalid_proof_retried": {
			retryCount: uintPtr(2),
			setup: func(fetcher *MockFetcher, checker *MockFetchChecker, request RemoteHeaderRequest) {
				fetcher.EXPECT().RemoteHeader(gomock.Any(), request).Return(header, proof, nil).Times(3)
				gomock.InOrder(
					checker.EXPECT().CheckHeaderProof(request, header, proof).
						Return(nil, blockchain.ErrInvalidCHTProof).Times(2),
					checker.EXPECT().CheckHeaderProof(request, header, proof).Return(header, nil),
				)
			},
			expected: header,
		},
		"attempts_exhausted": {
			retryCount: uintPtr(2),
			setup: func(fetcher *MockFetcher, checker *MockFetchChecker, request RemoteHeaderRequest) {
				fetcher.EXPECT().RemoteHeader(gomock.Any(), request).Return(nil, nil, errTest).Times(3)
			},
			errSentinel: blockchain.ErrRemoteFetchFailed,
		},
		"no_retry": {
			retryCount: uintPtr(0),
			setup: func(fetcher *MockFetcher, checker *MockFetchChecker, request RemoteHeaderRequest) {
				fetcher.EXPECT().RemoteHeader(gomock.Any(), request).Return(nil, nil, errTest)
			},
			errSentinel: errTest,
		},
	}

	for name, testCase := range testCases {
		testCase := testCase
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctrl := gomock.NewController(t)

			fetcher := NewMockFetcher(ctrl)
			checker := NewMockFetchChecker(ctrl)
			request := RemoteHeaderRequest{Block: 1, RetryCount: testCase.retryCount}
			testCase.setup(fetcher, checker, request)

			retrying := NewRetryingFetcher(fetcher, checker, 0)
			got, err := retrying.Header(context.Background(), request)
			if testCase.errSentinel != nil {
				assert.ErrorIs(t, err, testCase.errSentinel)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testCase.expected, got)
		})
	}
}

func Test_RetryingFetcher_cancelled(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)

	ctx, cancel := context.WithCancel(context.Background())
	fetcher := NewMockFetcher(ctrl)
	request := RemoteCallRequest{Method: "Test_read", RetryCount: uintPtr(5)}
	fetcher.EXPECT().RemoteCall(gomock.Any(), request).DoAndReturn(
		func(context.Context, RemoteCallRequest) (trie.StorageProof, error) {
			cancel()
			return nil, errors.New("peer disconnected")
		})

	retrying := NewRetryingFetcher(fetcher, NewMockFetchChecker(ctrl), 0)
	_, err := retrying.Call(ctx, request)
	assert.ErrorIs(t, err, blockchain.ErrRemoteFetchCancelled)
	assert.ErrorIs(t, err, context.Canceled)
}

func Test_RetryingFetcher_Body(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)

	body := types.Body{{1}, {2}}
	request := RemoteBodyRequest{Header: &types.Header{ExtrinsicsRoot: body.ExtrinsicsRoot()}}

	fetcher := NewMockFetcher(ctrl)
	gomock.InOrder(
		fetcher.EXPECT().RemoteBody(gomock.Any(), request).Return(types.Body{{3}}, nil),
		fetcher.EXPECT().RemoteBody(gomock.Any(), request).Return(body, nil),
	)

	// the first body does not match the extrinsics root
	retrying := NewRetryingFetcher(fetcher, NewLightDataChecker(nil, nil, testCHTSize), 0)
	got, err := retrying.Body(context.Background(), request)
	require.NoError(t, err)
	assert.Equal(t, body, got)
}

func Test_RetryingFetcher_SetRetryCount(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)

	errTest := errors.New("test error")
	request := RemoteReadRequest{Keys: [][]byte{{1}}}
	fetcher := NewMockFetcher(ctrl)
	fetcher.EXPECT().RemoteRead(gomock.Any(), request).Return(nil, errTest).Times(4)

	retrying := NewRetryingFetcher(fetcher, NewMockFetchChecker(ctrl), 0)
	retrying.SetRetryCount(3)
	_, err := retrying.Read(context.Background(), request)
	assert.ErrorIs(t, err, blockchain.ErrRemoteFetchFailed)
	assert.ErrorIs(t, err, errTest)
}
