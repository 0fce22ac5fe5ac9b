package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"housetrend/internal/datasync"
	"housetrend/internal/storage"
)

type fakePublisher struct {
	ids      []int64
	versions []string
	err      error
	closed   bool
}

func (f *fakePublisher) PublishSnapshotSaved(_ context.Context, id int64, version string) error {
	f.ids = append(f.ids, id)
	f.versions = append(f.versions, version)
	return f.err
}

func (f *fakePublisher) Close() error {
	f.closed = true
	return nil
}

func newArchive(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	return repo
}

func TestRecordSnapshotArchivesAndPublishes(t *testing.T) {
	ctx := context.Background()
	repo := newArchive(t)
	pub := &fakePublisher{}
	svc := NewSnapshotService(repo, pub)
	defer svc.Close()

	err := svc.RecordSnapshot(ctx, datasync.Snapshot{
		Source:   datasync.SavedToRemote,
		Version:  "sha-1",
		Records:  3,
		Document: []byte(`{}`),
		SavedAt:  time.Now(),
	})
	if err != nil {
		t.Fatalf("RecordSnapshot: %v", err)
	}
	if len(pub.ids) != 1 || pub.versions[0] != "sha-1" {
		t.Fatalf("published %v %v", pub.ids, pub.versions)
	}

	history, err := svc.History(ctx, 0)
	if err != nil || len(history) != 1 || history[0].ID != pub.ids[0] || history[0].RecordCount != 3 {
		t.Fatalf("history %+v %v", history, err)
	}
}

func TestRecordSnapshotToleratesPublishFailure(t *testing.T) {
	repo := newArchive(t)
	svc := NewSnapshotService(repo, &fakePublisher{err: errors.New("broker down")})
	defer svc.Close()
	if err := svc.RecordSnapshot(context.Background(), datasync.Snapshot{Source: datasync.SavedToDownload, Document: []byte(`{}`)}); err != nil {
		t.Fatalf("publish failures must not fail the record: %v", err)
	}
}

func TestRecordSnapshotWithoutPublisher(t *testing.T) {
	repo := newArchive(t)
	svc := NewSnapshotService(repo, nil)
	defer svc.Close()
	if err := svc.RecordSnapshot(context.Background(), datasync.Snapshot{Source: datasync.SavedToDownload, Document: []byte(`{}`)}); err != nil {
		t.Fatalf("RecordSnapshot: %v", err)
	}
	pending, _ := repo.GetPending(context.Background(), 10)
	if len(pending) != 1 {
		t.Fatalf("expected a pending snapshot, got %d", len(pending))
	}
}

func TestClose(t *testing.T) {
	pub := &fakePublisher{}
	svc := NewSnapshotService(newArchive(t), pub)
	if err := svc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !pub.closed {
		t.Fatal("publisher not closed")
	}
}
