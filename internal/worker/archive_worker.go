package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"housetrend/internal/amqp"
	"housetrend/internal/core"
	"housetrend/internal/sheets"
	"housetrend/internal/storage"
)

// Archive is the part of the snapshot archive the worker needs.
type Archive interface {
	Get(ctx context.Context, id int64) (storage.Snapshot, error)
	GetPending(ctx context.Context, limit int) ([]storage.Snapshot, error)
	MarkSynced(ctx context.Context, id int64) error
	MarkSyncError(ctx context.Context, id int64, reason string) error
}

// ArchiveWorker mirrors archived snapshots into a spreadsheet.
type ArchiveWorker struct {
	archive   Archive
	mirror    sheets.SnapshotMirror
	batchSize int
}

func NewArchiveWorker(archive Archive, mirror sheets.SnapshotMirror, batchSize int) *ArchiveWorker {
	if batchSize < 1 {
		batchSize = 10
	}
	return &ArchiveWorker{
		archive:   archive,
		mirror:    mirror,
		batchSize: batchSize,
	}
}

// HandleSnapshotSaved processes a single snapshot message from AMQP.
func (w *ArchiveWorker) HandleSnapshotSaved(ctx context.Context, msg *amqp.SnapshotSavedMessage) error {
	slog.InfoContext(ctx, "Processing snapshot message", "id", msg.ID, "version", msg.Version)

	snap, err := w.archive.Get(ctx, msg.ID)
	if errors.Is(err, storage.ErrNotFound) {
		// nothing to retry; ack it
		slog.WarnContext(ctx, "Snapshot not in archive, dropping message", "id", msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get snapshot from storage: %w", err)
	}
	if snap.SyncStatus == storage.StatusSynced {
		slog.InfoContext(ctx, "Snapshot already mirrored", "id", msg.ID)
		return nil
	}
	return w.mirrorSnapshot(ctx, snap)
}

// ProcessPending mirrors snapshots whose message was lost, oldest first. It
// returns how many were mirrored.
func (w *ArchiveWorker) ProcessPending(ctx context.Context) (int, error) {
	return w.processPending(ctx, w.batchSize)
}

// StartupSyncCheck runs a larger pending scan when the worker starts.
func (w *ArchiveWorker) StartupSyncCheck(ctx context.Context) error {
	n, err := w.processPending(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup sync check: %w", err)
	}
	slog.InfoContext(ctx, "Startup sync check completed", "mirrored", n)
	return nil
}

func (w *ArchiveWorker) processPending(ctx context.Context, limit int) (int, error) {
	pending, err := w.archive.GetPending(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("get pending snapshots: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	slog.InfoContext(ctx, "Processing pending snapshots", "count", len(pending))
	mirrored := 0
	for _, snap := range pending {
		if err := ctx.Err(); err != nil {
			return mirrored, err
		}
		if err := w.mirrorSnapshot(ctx, snap); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror snapshot", "id", snap.ID, "error", err)
			continue
		}
		mirrored++
	}
	return mirrored, nil
}

// mirrorSnapshot pushes one snapshot. A document that does not parse is
// marked as errored; a mirror failure stays pending so it is retried.
func (w *ArchiveWorker) mirrorSnapshot(ctx context.Context, snap storage.Snapshot) error {
	doc, err := core.DecodeDocument(snap.Document)
	if err != nil {
		if markErr := w.archive.MarkSyncError(ctx, snap.ID, err.Error()); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", snap.ID, "error", markErr)
		}
		return fmt.Errorf("decode snapshot %d: %w", snap.ID, err)
	}

	ref, err := w.mirror.MirrorSnapshot(ctx, snap.ID, doc)
	if err != nil {
		return fmt.Errorf("mirror snapshot %d: %w", snap.ID, err)
	}

	if err := w.archive.MarkSynced(ctx, snap.ID); err != nil {
		return fmt.Errorf("mark snapshot synced: %w", err)
	}
	slog.InfoContext(ctx, "Snapshot mirrored", "id", snap.ID, "ref", ref)
	return nil
}

// RunPeriodic scans for pending snapshots every interval until ctx is done.
func (w *ArchiveWorker) RunPeriodic(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.ProcessPending(ctx); err != nil && ctx.Err() == nil {
				slog.ErrorContext(ctx, "Periodic sync failed", "error", err)
			}
		}
	}
}
