package services

import (
	"context"
	"fmt"
	"log/slog"

	"housetrend/internal/datasync"
	"housetrend/internal/storage"
)

type (
	// SnapshotArchive is the durable history of saved documents.
	SnapshotArchive interface {
		Insert(ctx context.Context, s storage.Snapshot) (int64, error)
		List(ctx context.Context, limit int) ([]storage.Snapshot, error)
		Close() error
	}

	// SnapshotPublisher announces archived saves to the archive worker.
	SnapshotPublisher interface {
		PublishSnapshotSaved(ctx context.Context, id int64, version string) error
		Close() error
	}
)

var _ datasync.Recorder = (*SnapshotService)(nil)

// SnapshotService archives every save in SQLite and publishes an event so
// the worker mirrors it.
type SnapshotService struct {
	storage   SnapshotArchive
	publisher SnapshotPublisher
}

// NewSnapshotService accepts a nil publisher; events are then skipped.
func NewSnapshotService(storage SnapshotArchive, publisher SnapshotPublisher) *SnapshotService {
	return &SnapshotService{
		storage:   storage,
		publisher: publisher,
	}
}

// RecordSnapshot saves the snapshot locally and publishes the saved event.
func (s *SnapshotService) RecordSnapshot(ctx context.Context, snap datasync.Snapshot) error {
	id, err := s.storage.Insert(ctx, storage.Snapshot{
		Source:      snap.Source,
		Version:     snap.Version,
		RecordCount: snap.Records,
		Document:    snap.Document,
		SavedAt:     snap.SavedAt,
	})
	if err != nil {
		return fmt.Errorf("archive snapshot: %w", err)
	}

	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping snapshot message", "id", id)
		return nil
	}
	if err := s.publisher.PublishSnapshotSaved(ctx, id, snap.Version); err != nil {
		// the worker's periodic scan picks the snapshot up anyway
		slog.ErrorContext(ctx, "Failed to publish snapshot message", "id", id, "error", err)
	}
	return nil
}

// History returns the latest archived saves, newest first.
func (s *SnapshotService) History(ctx context.Context, limit int) ([]storage.Snapshot, error) {
	if limit <= 0 {
		limit = 20
	}
	list, err := s.storage.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return list, nil
}

// Close closes both storage and AMQP connections
func (s *SnapshotService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close snapshot service: %v", errs)
	}

	return nil
}
