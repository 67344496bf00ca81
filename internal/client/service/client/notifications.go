// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package client

import (
	"sync"

	"github.com/ChainSafe/chainstate/dot/telemetry"
	"github.com/ChainSafe/chainstate/internal/client/api"
	"github.com/ChainSafe/chainstate/lib/common"
	"github.com/google/uuid"
)

const defaultBufferSize = 128

// notificationSinks fans events out to subscribers. A subscriber whose
// channel is full is dropped and its channel closed.
type notificationSinks[T any] struct {
	name  string
	mutex sync.Mutex
	sinks map[uint32]chan T
}

func newNotificationSinks[T any](name string) *notificationSinks[T] {
	return &notificationSinks[T]{
		name:  name,
		sinks: make(map[uint32]chan T),
	}
}

func (n *notificationSinks[T]) subscribe() (id uint32, ch <-chan T) {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	for {
		id = uuid.New().ID()
		if _, ok := n.sinks[id]; !ok {
			break
		}
	}
	sink := make(chan T, defaultBufferSize)
	n.sinks[id] = sink
	return id, sink
}

func (n *notificationSinks[T]) free(id uint32) {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	sink, ok := n.sinks[id]
	if !ok {
		return
	}
	close(sink)
	delete(n.sinks, id)
}

func (n *notificationSinks[T]) notify(event T) {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	for id, sink := range n.sinks {
		select {
		case sink <- event:
		default:
			logger.Debugf("dropping %s subscriber %d with a full channel", n.name, id)
			close(sink)
			delete(n.sinks, id)
		}
	}
}

// ImportNotificationStream subscribes to block import notifications.
func (c *Client) ImportNotificationStream() (id uint32, ch <-chan api.BlockImportNotification) {
	return c.importSinks.subscribe()
}

// FreeImportNotificationStream unsubscribes from block import
// notifications and closes the channel.
func (c *Client) FreeImportNotificationStream(id uint32) {
	c.importSinks.free(id)
}

// FinalityNotificationStream subscribes to finality notifications.
func (c *Client) FinalityNotificationStream() (id uint32, ch <-chan api.FinalityNotification) {
	return c.finalitySinks.subscribe()
}

// FreeFinalityNotificationStream unsubscribes from finality notifications
// and closes the channel.
func (c *Client) FreeFinalityNotificationStream(id uint32) {
	c.finalitySinks.free(id)
}

func (c *Client) notifyImported(summary *api.ImportSummary) {
	if summary == nil {
		return
	}
	c.importSinks.notify(api.NewBlockImportNotificationFromSummary(*summary))
}

func (c *Client) notifyFinalized(summary *api.FinalizeSummary) {
	if summary == nil {
		return
	}

	c.telemetry.SendMessage(telemetry.NewNotifyFinalizedTM(summary.Header.Hash(), summary.Header.Number))

	for _, hash := range summary.Finalized {
		header := summary.Header
		if hash != header.Hash() {
			var err error
			header, err = c.backend.Blockchain().Header(hash)
			if err != nil || header == nil {
				logger.Warnf("cannot read finalized header %s to notify: %v", hash.Short(), err)
				continue
			}
		}
		c.finalitySinks.notify(api.FinalityNotification{Hash: hash, Header: header})
	}
}

// boundFinalized keeps the last limit hashes of finalized, which is ordered
// oldest first.
func boundFinalized(finalized []common.Hash, limit uint) []common.Hash {
	if uint(len(finalized)) <= limit {
		return finalized
	}
	return finalized[uint(len(finalized))-limit:]
}
