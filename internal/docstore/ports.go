// Package docstore defines where the persisted document lives: a file in a
// remote repository, a local file, or memory.
package docstore

import (
	"context"
	"errors"

	"housetrend/internal/core"
)

var (
	// ErrNotFound means the document does not exist at the target.
	ErrNotFound = errors.New("document not found")
	// ErrVersionConflict means the write carried a stale version token.
	ErrVersionConflict = errors.New("document version conflict")
	// ErrMalformed means the stored bytes are not a valid document.
	ErrMalformed = errors.New("malformed document")
)

// Ports for the data sync engine.
type (
	// Versioned is a conflict-checked store: Fetch returns the document with
	// its version token, Put overwrites it only if the token still matches.
	// An empty token creates the document.
	Versioned interface {
		Fetch(ctx context.Context) (doc core.Document, version string, err error)
		Put(ctx context.Context, doc core.Document, version string) (newVersion string, err error)
	}

	// Reader loads a document.
	Reader interface {
		Read(ctx context.Context) (core.Document, error)
	}

	// Downloader hands a document to the operator as a file. It returns where
	// the file went.
	Downloader interface {
		Download(ctx context.Context, doc core.Document) (location string, err error)
	}
)
