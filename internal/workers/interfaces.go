// SPDX-License-Identifier: Apache-2.0

// Package workers provides the client's background workers: the periodic
// sync queue drain and the cache expiry sweep. The Workers aggregate
// starts and stops them as one unit.
package workers

import "context"

// Worker is a long-running background job. Start launches its goroutine
// and returns; Stop halts it and waits for it to exit.
type Worker interface {
	Start(ctx context.Context)
	Stop()
}

// Syncer drains the sync queue. Satisfied by *service.SyncEngine.
type Syncer interface {
	SyncNow(ctx context.Context) error
}

// CacheSweeper removes expired cache entries. Satisfied by
// *service.CacheService.
type CacheSweeper interface {
	ClearExpired(ctx context.Context) (int64, error)
}

// ConnectivityEvents exposes connectivity transition subscriptions.
// Satisfied by *netmon.Monitor.
type ConnectivityEvents interface {
	Subscribe(fn func(online bool))
}
