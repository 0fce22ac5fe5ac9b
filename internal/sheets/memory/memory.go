// Package memory is an in-process snapshot mirror used when no spreadsheet is
// configured and in tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"housetrend/internal/core"
	ports "housetrend/internal/sheets"
)

var _ ports.SnapshotMirror = (*Mirror)(nil)

type Mirror struct {
	mu     sync.Mutex
	ids    []int64
	latest core.Document
	err    error
}

func New() *Mirror { return &Mirror{} }

// Fail makes every following mirror call return err. Nil clears it.
func (m *Mirror) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *Mirror) MirrorSnapshot(_ context.Context, id int64, doc core.Document) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.ids = append(m.ids, id)
	m.latest = doc
	return fmt.Sprintf("mem:%d", id), nil
}

// Mirrored returns the snapshot ids in mirroring order.
func (m *Mirror) Mirrored() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.ids...)
}

// Latest returns the last mirrored document.
func (m *Mirror) Latest() core.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latest
}
