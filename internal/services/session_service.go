package services

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// sessionStore is the slice of the database client the merger needs.
type sessionStore interface {
	EnsureChatSession(ctx context.Context, sessionID, userID string) (ownerID string, err error)
	GetSessionDocuments(ctx context.Context, sessionID string) ([]string, error)
	AppendSessionDocuments(ctx context.Context, sessionID string, documentIDs []string) error
}

// SessionService maintains each session's ordered, deduplicated set of
// attached document ids, so a file uploaded in turn 1 is still visible
// in turn 5 without re-upload.
type SessionService struct {
	store sessionStore
}

func NewSessionService(store sessionStore) *SessionService {
	return &SessionService{store: store}
}

// MergeTurnReferences unions the turn's newly referenced ids into the
// session's stored set, preserving first-seen order, and returns the
// merged list. Idempotent: merging the same ids again changes nothing.
// A session belongs to the user who opened it; any other requester gets
// ErrAccessDenied before the stored set is read or mutated. Revoked or
// inaccessible ids are left in place; the assembler's ownership and
// readiness checks filter them out on every turn.
func (s *SessionService) MergeTurnReferences(ctx context.Context, sessionID, userID string, newIDs []string) ([]string, error) {
	ownerID, err := s.store.EnsureChatSession(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if ownerID != userID {
		return nil, eris.Wrapf(ErrAccessDenied, "chat session %s", sessionID)
	}

	if len(newIDs) > 0 {
		if err := s.store.AppendSessionDocuments(ctx, sessionID, dedup(newIDs)); err != nil {
			return nil, err
		}
	}

	merged, err := s.store.GetSessionDocuments(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	zap.L().Debug("turn references merged",
		zap.String("session_id", sessionID),
		zap.Int("new", len(newIDs)),
		zap.Int("merged", len(merged)))
	return merged, nil
}

// dedup removes duplicates preserving first-seen order.
func dedup(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
