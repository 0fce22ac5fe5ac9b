package sheets

import (
	"context"

	"housetrend/internal/core"
)

// Ports for outbound adapters.
type (
	// SnapshotMirror publishes a saved document as a spreadsheet table.
	SnapshotMirror interface {
		MirrorSnapshot(ctx context.Context, id int64, doc core.Document) (ref string, err error)
	}
)
