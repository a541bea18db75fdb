// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/sitewire/fieldsync/internal/adapter"
	"github.com/sitewire/fieldsync/internal/config"
	"github.com/sitewire/fieldsync/internal/logger"
	"github.com/sitewire/fieldsync/internal/store"
	"github.com/sitewire/fieldsync/models"
)

// FailureHandler is invoked when a queue entry exhausts its retry budget
// and is dropped. The originating record stays in the local store with
// synced=false, so the user can re-edit or trigger a manual sync later.
type FailureHandler func(entry models.SyncEntry, err error)

// ConflictHandler is invoked when delivery of an entry is paused because
// the server copy diverged since the local edit.
type ConflictHandler func(conflict models.Conflict)

// SyncEngine drains the durable sync queue against the backend. It owns
// conflict surfacing and resolution; delivery of a conflicted record stays
// paused until the caller resolves it.
type SyncEngine struct {
	records  store.RecordRepository
	queue    store.SyncQueueRepository
	backend  adapter.BackendAdapter
	files    adapter.FileStorage
	network  NetworkStatus
	detector ConflictDetector
	logger   *logger.Logger

	maxRetries int
	backoff    time.Duration
	bucket     string
	now        func() time.Time

	syncing atomic.Bool

	mu         sync.RWMutex
	conflicts  map[string]models.Conflict
	onFailure  FailureHandler
	onConflict ConflictHandler
}

// NewSyncEngine builds the engine over the local storages, the backend
// adapter and the connectivity monitor.
func NewSyncEngine(
	storages *store.Storages,
	backend adapter.BackendAdapter,
	files adapter.FileStorage,
	network NetworkStatus,
	cfg *config.Config,
	log *logger.Logger,
) *SyncEngine {
	return &SyncEngine{
		records:    storages.Records,
		queue:      storages.Queue,
		backend:    backend,
		files:      files,
		network:    network,
		detector:   NewConflictDetector(),
		logger:     log,
		maxRetries: cfg.Sync.MaxRetries,
		backoff:    cfg.Sync.InitialBackoff,
		bucket:     cfg.Backend.StorageBucket,
		now:        time.Now,
		conflicts:  make(map[string]models.Conflict),
	}
}

// SetFailureHandler registers the drop notification callback.
func (e *SyncEngine) SetFailureHandler(fn FailureHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onFailure = fn
}

// SetConflictHandler registers the conflict notification callback.
func (e *SyncEngine) SetConflictHandler(fn ConflictHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onConflict = fn
}

// SyncNow drains the queue once, oldest entry first. It returns ErrOffline
// without any network I/O when connectivity is down, ErrSyncInProgress when
// a drain is already running, and nil on an empty queue. Individual entry
// failures are contained: the caller learns the aggregate outcome through a
// wrapped ErrSyncIncomplete, the details through Queue and
// PendingConflicts.
func (e *SyncEngine) SyncNow(ctx context.Context) error {
	if !e.network.Online() {
		return ErrOffline
	}
	if !e.syncing.CompareAndSwap(false, true) {
		return ErrSyncInProgress
	}
	defer e.syncing.Store(false)

	entries, err := e.queue.List(ctx)
	if err != nil {
		return fmt.Errorf("list sync queue: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}

	log := e.logger.With().Str("func", "SyncNow").Logger()
	log.Info().Int("pending", len(entries)).Msg("draining sync queue")

	var failed, paused int
	for _, entry := range entries {
		if ctx.Err() != nil {
			return fmt.Errorf("drain interrupted: %w", ctx.Err())
		}
		if e.hasConflict(entry.Collection, entry.RecordID) {
			paused++
			continue
		}

		switch outcome := e.processEntry(ctx, entry); outcome {
		case outcomeDelivered:
		case outcomeConflict:
			paused++
		case outcomeFailed:
			failed++
		}
	}

	if failed > 0 || paused > 0 {
		log.Warn().Int("failed", failed).Int("conflicts", paused).Msg("drain finished with leftovers")
		return fmt.Errorf("%w: %d failed, %d conflicted of %d entries", ErrSyncIncomplete, failed, paused, len(entries))
	}

	log.Info().Int("delivered", len(entries)).Msg("drain finished")
	return nil
}

type entryOutcome int

const (
	outcomeDelivered entryOutcome = iota
	outcomeConflict
	outcomeFailed
)

func (e *SyncEngine) processEntry(ctx context.Context, entry models.SyncEntry) entryOutcome {
	if entry.Action != models.ActionDelete {
		if conflicted := e.checkConflict(ctx, entry); conflicted {
			return outcomeConflict
		}
	}

	err := e.deliverWithRetry(ctx, &entry)
	if err == nil {
		return e.finishEntry(ctx, entry)
	}

	entry.LastError = err.Error()
	if entry.RetryCount >= e.maxRetries {
		e.dropEntry(ctx, entry, err)
		return outcomeFailed
	}

	if updateErr := e.queue.Update(ctx, entry); updateErr != nil {
		e.logger.Error().Str("func", "processEntry").Err(updateErr).
			Str("entry", entry.ID).Msg("persist retry state")
	}
	return outcomeFailed
}

// deliverWithRetry attempts delivery of one entry, retrying transient
// backend failures with exponential backoff until the entry's total retry
// budget is spent. Every attempt made is counted on the entry.
func (e *SyncEngine) deliverWithRetry(ctx context.Context, entry *models.SyncEntry) error {
	remaining := e.maxRetries - entry.RetryCount
	if remaining < 1 {
		remaining = 1
	}

	backoff := retry.WithMaxRetries(uint64(remaining-1), retry.NewExponential(e.backoff))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		entry.RetryCount++
		err := e.deliver(ctx, *entry)
		if err == nil {
			return nil
		}
		if errors.Is(err, adapter.ErrUnavailable) {
			return retry.RetryableError(err)
		}
		return err
	})
}

// deliver issues the single backend call for one entry.
func (e *SyncEngine) deliver(ctx context.Context, entry models.SyncEntry) error {
	if entry.Action == models.ActionDelete {
		err := e.backend.Delete(ctx, entry.Collection, entry.RecordID)
		if err != nil && !errors.Is(err, adapter.ErrNotFound) {
			return err
		}
		return nil
	}

	payload := entry.Data.WirePayload()
	if path, pending := entry.Data.StringField(models.FieldPendingUpload); pending {
		url, err := e.uploadPendingFile(ctx, entry, path)
		if err != nil {
			return err
		}
		payload["file_url"] = url
	}

	return e.backend.Upsert(ctx, entry.Collection, payload)
}

// uploadPendingFile pushes the local file referenced by a pendingUpload
// marker to blob storage and returns its public URL. The local record keeps
// its marker; the device picks the final URL up from the next server fetch.
func (e *SyncEngine) uploadPendingFile(ctx context.Context, entry models.SyncEntry, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read pending upload %q: %w", path, err)
	}

	objectPath := entry.Collection + "/" + entry.RecordID + "/" + filepath.Base(path)
	contentType := mime.TypeByExtension(filepath.Ext(path))

	url, err := e.files.Upload(ctx, e.bucket, objectPath, data, contentType)
	if err != nil {
		return "", fmt.Errorf("upload attachment %q: %w", objectPath, err)
	}

	e.logger.Info().Str("func", "uploadPendingFile").
		Str("object", objectPath).Msg("attachment uploaded")
	return url, nil
}

// checkConflict fetches the server copy of the entry's record and pauses
// the entry when the server diverged since the local edit. An unreachable
// backend is reported as no conflict here; the delivery itself will fail
// and count against the retry budget.
func (e *SyncEngine) checkConflict(ctx context.Context, entry models.SyncEntry) bool {
	server, err := e.backend.SelectOne(ctx, entry.Collection, entry.RecordID)
	if err != nil {
		return false
	}

	local, err := e.records.Get(ctx, entry.Collection, entry.RecordID)
	if err != nil {
		local = entry.Data
	}

	if !e.detector.Detect(local, server) {
		return false
	}

	conflict := e.detector.Describe(entry.Collection, local, server, e.now())

	e.mu.Lock()
	e.conflicts[conflict.Key()] = conflict
	handler := e.onConflict
	e.mu.Unlock()

	e.logger.Warn().Str("func", "checkConflict").
		Str("record", conflict.Key()).
		Strs("fields", conflict.FieldDiffs).
		Msg("delivery paused on conflict")

	if handler != nil {
		handler(conflict)
	}
	return true
}

func (e *SyncEngine) finishEntry(ctx context.Context, entry models.SyncEntry) entryOutcome {
	if err := e.queue.Remove(ctx, entry.ID); err != nil {
		e.logger.Error().Str("func", "finishEntry").Err(err).
			Str("entry", entry.ID).Msg("remove delivered entry")
		return outcomeFailed
	}

	if entry.Action != models.ActionDelete {
		if err := e.records.MarkSynced(ctx, entry.Collection, entry.RecordID, e.now()); err != nil &&
			!errors.Is(err, store.ErrNotFound) {
			e.logger.Error().Str("func", "finishEntry").Err(err).
				Str("record", entry.Collection+"/"+entry.RecordID).Msg("mark record synced")
		}
	}
	return outcomeDelivered
}

// dropEntry removes an entry whose retry budget is spent. The record itself
// is preserved unsynced.
func (e *SyncEngine) dropEntry(ctx context.Context, entry models.SyncEntry, cause error) {
	if err := e.queue.Remove(ctx, entry.ID); err != nil {
		e.logger.Error().Str("func", "dropEntry").Err(err).
			Str("entry", entry.ID).Msg("remove exhausted entry")
	}

	e.logger.Error().Str("func", "dropEntry").
		Str("record", entry.Collection+"/"+entry.RecordID).
		Int("attempts", entry.RetryCount).
		Err(cause).
		Msg("delivery abandoned after retry budget")

	e.mu.RLock()
	handler := e.onFailure
	e.mu.RUnlock()
	if handler != nil {
		handler(entry, cause)
	}
}

// Resolve settles a pending conflict with the supplied strategy and lifts
// the delivery pause for the record.
func (e *SyncEngine) Resolve(ctx context.Context, conflictKey string, resolution models.Resolution) error {
	e.mu.RLock()
	conflict, ok := e.conflicts[conflictKey]
	e.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrConflictNotFound, conflictKey)
	}

	var err error
	switch resolution.Strategy {
	case models.UseLocal:
		err = e.resolveUseLocal(ctx, conflict)
	case models.UseServer:
		err = e.resolveUseServer(ctx, conflict)
	case models.MergeFields:
		err = e.resolveMerge(ctx, conflict, resolution.PreferLocal)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStrategy, resolution.Strategy)
	}
	if err != nil {
		return err
	}

	e.mu.Lock()
	delete(e.conflicts, conflictKey)
	e.mu.Unlock()

	e.logger.Info().Str("func", "Resolve").
		Str("record", conflictKey).
		Str("strategy", string(resolution.Strategy)).
		Msg("conflict resolved")
	return nil
}

// resolveUseLocal keeps the local record: superseded queue snapshots are
// dropped and the record is re-stamped and re-enqueued, so its fresh
// localUpdatedAt outranks the server copy on the next drain.
func (e *SyncEngine) resolveUseLocal(ctx context.Context, conflict models.Conflict) error {
	if err := e.queue.RemoveForRecord(ctx, conflict.Collection, conflict.RecordID); err != nil {
		return fmt.Errorf("drop superseded queue entries: %w", err)
	}
	if _, err := e.records.Put(ctx, conflict.Collection, conflict.Local, true); err != nil {
		return fmt.Errorf("re-enqueue local record: %w", err)
	}
	return nil
}

// resolveUseServer discards the local edit and adopts the server copy.
func (e *SyncEngine) resolveUseServer(ctx context.Context, conflict models.Conflict) error {
	if err := e.queue.RemoveForRecord(ctx, conflict.Collection, conflict.RecordID); err != nil {
		return fmt.Errorf("drop superseded queue entries: %w", err)
	}
	if err := e.records.SaveServerRecord(ctx, conflict.Collection, conflict.Server); err != nil {
		return fmt.Errorf("adopt server record: %w", err)
	}
	return nil
}

// resolveMerge writes the field-level merge back as a fresh local edit and
// enqueues it for delivery.
func (e *SyncEngine) resolveMerge(ctx context.Context, conflict models.Conflict, preferLocal []string) error {
	if err := e.queue.RemoveForRecord(ctx, conflict.Collection, conflict.RecordID); err != nil {
		return fmt.Errorf("drop superseded queue entries: %w", err)
	}

	merged := e.detector.Merge(conflict.Local, conflict.Server, preferLocal, e.now())
	if _, err := e.records.Put(ctx, conflict.Collection, merged, true); err != nil {
		return fmt.Errorf("store merged record: %w", err)
	}
	return nil
}

// PendingConflicts lists the conflicts awaiting resolution, oldest first.
func (e *SyncEngine) PendingConflicts() []models.Conflict {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]models.Conflict, 0, len(e.conflicts))
	for _, c := range e.conflicts {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DetectedAt.Equal(out[j].DetectedAt) {
			return out[i].Key() < out[j].Key()
		}
		return out[i].DetectedAt.Before(out[j].DetectedAt)
	})
	return out
}

// PendingCount reports how many queue entries await delivery.
func (e *SyncEngine) PendingCount(ctx context.Context) (int, error) {
	return e.queue.CountPending(ctx)
}

// Queue exposes the pending entries for inspection, oldest first.
func (e *SyncEngine) Queue(ctx context.Context) ([]models.SyncEntry, error) {
	return e.queue.List(ctx)
}

func (e *SyncEngine) hasConflict(collection, recordID string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.conflicts[collection+"/"+recordID]
	return ok
}
