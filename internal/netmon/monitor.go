// SPDX-License-Identifier: Apache-2.0

// Package netmon tracks backend reachability for the rest of the client.
// Connectivity is probed on a timer and can also be reported directly by
// callers that learn about it first (for example a failed sync delivery).
package netmon

import (
	"context"
	"sync"
	"time"

	"github.com/sitewire/fieldsync/internal/config"
	"github.com/sitewire/fieldsync/internal/logger"
)

// Prober answers whether the backend is reachable right now.
type Prober interface {
	Health(ctx context.Context) error
}

// Monitor maintains the current online/offline state and notifies
// subscribers on every transition. The zero state is offline until the
// first successful probe.
type Monitor struct {
	prober   Prober
	interval time.Duration
	timeout  time.Duration
	logger   *logger.Logger

	mu     sync.RWMutex
	online bool
	subs   []func(online bool)

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMonitor builds a monitor probing via prober on the configured cadence.
func NewMonitor(prober Prober, cfg config.Network, log *logger.Logger) *Monitor {
	interval := cfg.ProbeInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	timeout := cfg.ProbeTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Monitor{
		prober:   prober,
		interval: interval,
		timeout:  timeout,
		logger:   log,
	}
}

// Online reports the last known connectivity state.
func (m *Monitor) Online() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// SetOnline records a connectivity observation. Subscribers are notified
// only when the state actually changes.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	subs := make([]func(bool), len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()

	m.logger.Info().
		Str("func", "SetOnline").
		Bool("online", online).
		Msg("connectivity changed")

	for _, fn := range subs {
		fn(online)
	}
}

// Subscribe registers a callback invoked on every connectivity transition.
// Callbacks run on the goroutine that observed the transition and must not
// block for long.
func (m *Monitor) Subscribe(fn func(online bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, fn)
}

// Start launches the periodic probe loop. An immediate probe runs first so
// the state is settled before the first tick.
func (m *Monitor) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		m.check(ctx)

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.check(ctx)
			}
		}
	}()

	m.logger.Info().Str("func", "Start").Msg("network monitor started")
}

// Stop halts the probe loop and waits for it to exit.
func (m *Monitor) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	m.logger.Info().Str("func", "Stop").Msg("network monitor stopped")
}

func (m *Monitor) check(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	err := m.prober.Health(probeCtx)
	if err != nil && ctx.Err() == nil {
		m.logger.Debug().Str("func", "check").Err(err).Msg("connectivity probe failed")
	}
	m.SetOnline(err == nil)
}
