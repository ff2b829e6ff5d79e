// Package draft persists in-progress funnel answers per session. The
// backing store is treated as best-effort: a user must be able to keep
// filling the form while it is down, losing only resume-after-refresh.
package draft

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackhunterking/renoassist-forms/internal/common/logger"
	"github.com/jackhunterking/renoassist-forms/internal/common/storage"
	"github.com/jackhunterking/renoassist-forms/internal/models"
)

const keyPrefix = "renoassist:basement:draft:"

type Store struct {
	kv  storage.KV
	ttl time.Duration
	log logger.Logger
}

func NewStore(kv storage.KV, ttl time.Duration, log logger.Logger) *Store {
	return &Store{
		kv:  kv,
		ttl: ttl,
		log: log,
	}
}

func draftKey(sessionID string) string {
	return keyPrefix + sessionID
}

// Load returns the saved draft for a session. A missing key, an
// unreadable value, or a store outage all yield a fresh empty draft;
// the caller never sees an error.
func (s *Store) Load(ctx context.Context, sessionID string) *models.DraftRecord {
	raw, err := s.kv.Get(ctx, draftKey(sessionID))
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.log.Warn("Draft store unavailable, starting empty", map[string]interface{}{
				"session_id": sessionID,
				"error":      err.Error(),
			})
		}
		return &models.DraftRecord{}
	}

	var record models.DraftRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		s.log.Warn("Draft record corrupt, starting empty", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
		return &models.DraftRecord{}
	}

	return &record
}

// Update applies a patch to the stored draft and persists the merged
// record before returning it. A persistence failure is logged and the
// merged record is still returned so the funnel keeps moving.
func (s *Store) Update(ctx context.Context, sessionID string, patch models.DraftPatch) *models.DraftRecord {
	record := s.Load(ctx, sessionID)
	patch.Apply(record)
	s.persist(ctx, sessionID, record)
	return record
}

// Save persists a full draft record as-is.
func (s *Store) Save(ctx context.Context, sessionID string, record *models.DraftRecord) {
	s.persist(ctx, sessionID, record)
}

// Reset discards the saved draft for a session.
func (s *Store) Reset(ctx context.Context, sessionID string) {
	if err := s.kv.Del(ctx, draftKey(sessionID)); err != nil {
		s.log.Warn("Failed to clear draft", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
	}
}

func (s *Store) persist(ctx context.Context, sessionID string, record *models.DraftRecord) {
	data, err := json.Marshal(record)
	if err != nil {
		s.log.Error("Failed to marshal draft", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
		return
	}

	if err := s.kv.Set(ctx, draftKey(sessionID), string(data), s.ttl); err != nil {
		s.log.Warn("Failed to persist draft", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
	}
}
