// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/sitewire/fieldsync/internal/adapter"
	"github.com/sitewire/fieldsync/internal/config"
	"github.com/sitewire/fieldsync/internal/logger"
	"github.com/sitewire/fieldsync/internal/netmon"
	"github.com/sitewire/fieldsync/internal/service"
	"github.com/sitewire/fieldsync/internal/store"
	"github.com/sitewire/fieldsync/internal/workers"
	"github.com/sitewire/fieldsync/models"
)

// App owns the client process: storages, backend adapter, connectivity
// monitor, services and background workers.
type App struct {
	cfg      *config.Config
	logger   *logger.Logger
	storages *store.Storages
	backend  adapter.BackendAdapter
	monitor  *netmon.Monitor
	services *service.ClientServices
	workers  *workers.Workers
}

// NewApp wires the whole client from the merged configuration.
func NewApp(cfg *config.Config, log *logger.Logger) (*App, error) {
	storages, err := store.NewStorages(cfg.Storage, log)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}

	backend := adapter.NewRESTBackendAdapter(cfg.Backend)
	if token := os.Getenv("FIELDSYNC_TOKEN"); token != "" {
		backend.SetToken(token)
	}
	files := adapter.NewRESTFileStorage(cfg.Backend)

	monitor := netmon.NewMonitor(backend, cfg.Network, log)
	services := service.NewClientServices(storages, backend, files, monitor, cfg, log)

	services.Sync.SetFailureHandler(func(entry models.SyncEntry, cause error) {
		log.Error().
			Str("record", entry.Collection+"/"+entry.RecordID).
			Str("action", string(entry.Action)).
			Err(cause).
			Msg("record could not be delivered, kept locally for manual re-sync")
	})
	services.Sync.SetConflictHandler(func(c models.Conflict) {
		log.Warn().
			Str("record", c.Key()).
			Strs("fields", c.FieldDiffs).
			Msg("sync conflict detected, resolution required")
	})

	return &App{
		cfg:      cfg,
		logger:   log,
		storages: storages,
		backend:  backend,
		monitor:  monitor,
		services: services,
		workers:  workers.NewWorkers(services, monitor, cfg, log),
	}, nil
}

// Run starts the monitor and workers and blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	health := a.storages.Quota.Health()
	if health.Level != models.StorageHealthy {
		a.logger.Warn().
			Str("level", string(health.Level)).
			Float64("used_percent", health.UsedPercent).
			Msg("local storage capacity")
	}

	a.monitor.Start(ctx)
	a.workers.Start(ctx)

	a.logger.Info().Msg("fieldsync client running")
	<-ctx.Done()

	a.workers.Stop()
	a.monitor.Stop()
	return a.Close()
}

// SyncOnce probes connectivity and drains the queue a single time.
func (a *App) SyncOnce(ctx context.Context) error {
	a.monitor.SetOnline(a.backend.Health(ctx) == nil)

	err := a.services.Sync.SyncNow(ctx)
	if err != nil {
		a.reportConflicts()
		_ = a.Close()
		return err
	}
	a.logger.Info().Msg("sync complete")
	return a.Close()
}

// Status prints connectivity, pending work and storage capacity.
func (a *App) Status(ctx context.Context) error {
	a.monitor.SetOnline(a.backend.Health(ctx) == nil)

	pending, err := a.services.Sync.PendingCount(ctx)
	if err != nil {
		return fmt.Errorf("count pending entries: %w", err)
	}
	health := a.storages.Quota.Health()

	fmt.Printf("online:           %v\n", a.monitor.Online())
	fmt.Printf("pending entries:  %d\n", pending)
	fmt.Printf("storage level:    %s\n", health.Level)
	if health.LimitBytes > 0 {
		fmt.Printf("storage used:     %d / %d bytes (%.1f%%)\n",
			health.UsedBytes, health.LimitBytes, health.UsedPercent)
	}
	return a.Close()
}

// Pending prints the queued mutations awaiting delivery, oldest first.
func (a *App) Pending(ctx context.Context) error {
	entries, err := a.services.Sync.Queue(ctx)
	if err != nil {
		return fmt.Errorf("list sync queue: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println("sync queue is empty")
		return a.Close()
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "QUEUED\tACTION\tRECORD\tRETRIES\tLAST ERROR")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s/%s\t%d\t%s\n",
			e.Timestamp.Format("2006-01-02 15:04:05"),
			e.Action, e.Collection, e.RecordID, e.RetryCount, e.LastError)
	}
	if err = w.Flush(); err != nil {
		return err
	}
	return a.Close()
}

// Close releases the local storage handle.
func (a *App) Close() error {
	return a.storages.Close()
}

func (a *App) reportConflicts() {
	conflicts := a.services.Sync.PendingConflicts()
	if len(conflicts) == 0 {
		return
	}
	for _, c := range conflicts {
		fmt.Printf("conflict: %s (fields: %v)\n", c.Key(), c.FieldDiffs)
	}
}

// IsTerminal reports whether err is one of the expected user-facing sync
// outcomes rather than a programming or infrastructure error.
func IsTerminal(err error) bool {
	return errors.Is(err, service.ErrOffline) ||
		errors.Is(err, service.ErrSyncIncomplete)
}
