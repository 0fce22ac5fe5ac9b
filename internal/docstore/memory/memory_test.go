package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"housetrend/internal/core"
	"housetrend/internal/docstore"
)

func TestPutRequiresCurrentVersion(t *testing.T) {
	ctx := context.Background()
	s := New()
	if _, _, err := s.Fetch(ctx); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty store, got %v", err)
	}
	v1, err := s.Put(ctx, core.Document{}, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.Put(ctx, core.Document{}, "mem:99"); !errors.Is(err, docstore.ErrVersionConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	v2, err := s.Put(ctx, core.Document{TransactionData: []core.Record{{ID: 1, Community: "A"}}}, v1)
	if err != nil || v2 == v1 {
		t.Fatalf("update: v2=%q err=%v", v2, err)
	}
	doc, v, err := s.Fetch(ctx)
	if err != nil || v != v2 || len(doc.TransactionData) != 1 {
		t.Fatalf("fetch: %+v %q %v", doc, v, err)
	}
}

func TestFailSwitch(t *testing.T) {
	ctx := context.Background()
	s := NewWithDocument(core.Document{})
	boom := errors.New("boom")
	s.Fail(boom)
	if _, err := s.Read(ctx); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, err := s.Download(ctx, core.Document{}); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	s.Fail(nil)
	if _, err := s.Download(ctx, core.Document{}); err != nil {
		t.Fatalf("Download: %v", err)
	}
	if n := len(s.Downloads()); n != 1 {
		t.Fatalf("downloads = %d", n)
	}
}

func TestNewFromFile(t *testing.T) {
	dir := t.TempDir()
	if _, err := NewFromFile(filepath.Join(dir, "none.json")).Read(context.Background()); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("missing file should leave store empty, got %v", err)
	}
	path := filepath.Join(dir, "data.json")
	if err := os.WriteFile(path, []byte(`{"transactionData":[{"id":3,"community":"C","houseType":"1室","date":"2024-01-01","price":null,"area":40}]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	doc, err := NewFromFile(path).Read(context.Background())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(doc.TransactionData) != 1 || doc.TransactionData[0].Price.Valid() {
		t.Fatalf("unexpected doc %+v", doc)
	}
}
