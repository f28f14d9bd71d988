// Package textstore fronts the durable extracted-text table with a TTL
// cache. The durable table is the source of truth, written exactly
// once per document; a cache miss falls through to it and never
// triggers re-extraction.
package textstore

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/markdave123-py/docchat/internal/models"
)

// Durable is the slice of the database client the store reads through.
type Durable interface {
	InsertExtractedText(ctx context.Context, et *models.ExtractedText) error
	GetExtractedText(ctx context.Context, documentID string) (*models.ExtractedText, error)
}

type Store struct {
	durable Durable
	cache   *TTLCache
}

func NewStore(durable Durable, cache *TTLCache) *Store {
	return &Store{durable: durable, cache: cache}
}

// Put writes the durable copy and warms the cache. Idempotent.
func (s *Store) Put(ctx context.Context, et *models.ExtractedText) error {
	if err := s.durable.InsertExtractedText(ctx, et); err != nil {
		return eris.Wrapf(err, "textstore: persist %s", et.DocumentID)
	}
	s.cache.Set(et.DocumentID, et.Text)
	return nil
}

// GetText serves from cache when fresh, otherwise falls back to the
// durable store and repopulates the cache. A READY document with no
// durable row is an inconsistency, reported as an error.
func (s *Store) GetText(ctx context.Context, documentID string) (string, error) {
	if text, ok := s.cache.Get(documentID); ok {
		return text, nil
	}

	et, err := s.durable.GetExtractedText(ctx, documentID)
	if err != nil {
		return "", eris.Wrapf(err, "textstore: load %s", documentID)
	}
	if et == nil {
		return "", eris.Errorf("textstore: no durable text for document %s", documentID)
	}

	s.cache.Set(documentID, et.Text)
	return et.Text, nil
}
