// SPDX-License-Identifier: Apache-2.0

package netmon

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitewire/fieldsync/internal/config"
	"github.com/sitewire/fieldsync/internal/logger"
)

type stubProber struct {
	mu  sync.Mutex
	err error
}

func (p *stubProber) Health(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *stubProber) setErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func newTestMonitor(p Prober, interval time.Duration) *Monitor {
	return NewMonitor(p, config.Network{
		ProbeInterval: interval,
		ProbeTimeout:  time.Second,
	}, logger.Nop())
}

func TestMonitor_SetOnlineNotifiesOnTransition(t *testing.T) {
	m := newTestMonitor(&stubProber{}, time.Minute)

	var transitions []bool
	m.Subscribe(func(online bool) {
		transitions = append(transitions, online)
	})

	assert.False(t, m.Online())

	m.SetOnline(true)
	m.SetOnline(true) // no transition, no notification
	m.SetOnline(false)

	assert.True(t, len(transitions) == 2)
	assert.Equal(t, []bool{true, false}, transitions)
	assert.False(t, m.Online())
}

func TestMonitor_ProbeLoop(t *testing.T) {
	prober := &stubProber{err: errors.New("down")}
	m := newTestMonitor(prober, 10*time.Millisecond)

	online := make(chan bool, 8)
	m.Subscribe(func(v bool) { online <- v })

	m.Start(context.Background())
	defer m.Stop()

	prober.setErr(nil)
	select {
	case v := <-online:
		require.True(t, v)
	case <-time.After(2 * time.Second):
		t.Fatal("expected online transition after probe recovery")
	}
	assert.True(t, m.Online())

	prober.setErr(errors.New("down again"))
	select {
	case v := <-online:
		require.False(t, v)
	case <-time.After(2 * time.Second):
		t.Fatal("expected offline transition after probe failure")
	}
	assert.False(t, m.Online())
}

func TestMonitor_StopHaltsProbing(t *testing.T) {
	prober := &stubProber{}
	m := newTestMonitor(prober, 5*time.Millisecond)

	m.Start(context.Background())
	m.Stop()

	// After Stop the loop must be gone; flipping the probe result must not
	// change the recorded state anymore.
	m.SetOnline(false)
	prober.setErr(nil)
	time.Sleep(30 * time.Millisecond)
	assert.False(t, m.Online())
}
