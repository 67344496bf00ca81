// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ChainSafe/chainstate/internal/log"
	"github.com/gorilla/websocket"
)

var _ Client = (*Mailer)(nil)

type telemetryConnection struct {
	wsconn    *websocket.Conn
	verbosity int
}

// Mailer sends telemetry messages to the websocket endpoints it is
// connected to.
type Mailer struct {
	logger      log.LeveledLogger
	enabled     bool
	connections []*telemetryConnection
	mutex       sync.Mutex
}

// BootstrapMailer connects to the endpoints and returns a mailer sending
// messages to all the endpoints it could connect to. A disabled mailer
// drops every message.
func BootstrapMailer(ctx context.Context, endpoints []*Endpoint, enabled bool,
	logger log.LeveledLogger) (mailer *Mailer, err error) {
	mailer = &Mailer{
		logger:  logger,
		enabled: enabled,
	}
	if !enabled {
		return mailer, nil
	}

	const (
		maxRetries  = 5
		dialTimeout = 3 * time.Second
		retryDelay  = time.Second
	)

	for _, endpoint := range endpoints {
		for attempt := 0; attempt < maxRetries; attempt++ {
			dialCtx, dialCancel := context.WithTimeout(ctx, dialTimeout)
			conn, response, err := websocket.DefaultDialer.DialContext(dialCtx, endpoint.Endpoint, nil)
			dialCancel()
			if err != nil {
				if errors.Is(ctx.Err(), context.Canceled) {
					return nil, fmt.Errorf("connecting to telemetry endpoint %s: %w", endpoint.Endpoint, ctx.Err())
				}
				logger.Debugf("cannot connect to telemetry endpoint %s (attempt %d): %s",
					endpoint.Endpoint, attempt+1, err)
				time.Sleep(retryDelay)
				continue
			}

			err = response.Body.Close()
			if err != nil {
				logger.Warnf("cannot close body of response from %s: %s", endpoint.Endpoint, err)
			}

			mailer.connections = append(mailer.connections, &telemetryConnection{
				wsconn:    conn,
				verbosity: endpoint.Verbosity,
			})
			break
		}
	}

	return mailer, nil
}

// SendMessage sends the message to all connected endpoints. Failures are
// logged and otherwise ignored.
func (m *Mailer) SendMessage(msg json.Marshaler) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if !m.enabled || len(m.connections) == 0 {
		return
	}

	msgBytes, err := json.Marshal(msg)
	if err != nil {
		m.logger.Debugf("cannot marshal telemetry message: %s", err)
		return
	}

	for _, conn := range m.connections {
		err = conn.wsconn.WriteMessage(websocket.TextMessage, msgBytes)
		if err != nil {
			m.logger.Debugf("cannot send telemetry message: %s", err)
		}
	}
}

// Close closes all the endpoint connections.
func (m *Mailer) Close() (err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for _, conn := range m.connections {
		closeErr := conn.wsconn.Close()
		if closeErr != nil && err == nil {
			err = closeErr
		}
	}
	m.connections = nil
	return err
}
