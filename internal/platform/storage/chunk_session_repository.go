package storage

import (
	"context"
	"time"

	"gorm.io/gorm"

	"pilotforce-server-go/internal/platform/errors"
)

// ChunkSessionRepository tracks chunked GeoTIFF upload sessions.
type ChunkSessionRepository struct {
	db *gorm.DB
}

func NewChunkSessionRepository(db *gorm.DB) *ChunkSessionRepository {
	return &ChunkSessionRepository{db: db}
}

func (r *ChunkSessionRepository) Create(ctx context.Context, session *ChunkSession) error {
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return errors.Wrap(errors.KindStorage, "chunk_session.create", "failed to create session", err)
	}
	return nil
}

func (r *ChunkSessionRepository) Update(ctx context.Context, session *ChunkSession) error {
	if err := r.db.WithContext(ctx).Save(session).Error; err != nil {
		return errors.Wrap(errors.KindStorage, "chunk_session.update", "failed to update session", err)
	}
	return nil
}

func (r *ChunkSessionRepository) FindBySessionID(ctx context.Context, sessionID string) (*ChunkSession, error) {
	var model ChunkSession
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, errors.Wrap(errors.KindStorage, "chunk_session.find_by_session_id", "failed to find session", err)
	}
	return &model, nil
}

// ListPending returns sessions still waiting for reassembly.
func (r *ChunkSessionRepository) ListPending(ctx context.Context) ([]ChunkSession, error) {
	var models []ChunkSession
	if err := r.db.WithContext(ctx).
		Where("status = ?", "pending").
		Order("created_at asc").
		Find(&models).Error; err != nil {
		return nil, errors.Wrap(errors.KindStorage, "chunk_session.list_pending", "failed to list sessions", err)
	}
	return models, nil
}

// MarkCompleted stamps the session as done.
func (r *ChunkSessionRepository) MarkCompleted(ctx context.Context, sessionID string) error {
	now := time.Now()
	err := r.db.WithContext(ctx).
		Model(&ChunkSession{}).
		Where("session_id = ?", sessionID).
		Updates(map[string]interface{}{
			"status":       "completed",
			"completed_at": &now,
		}).Error
	if err != nil {
		return errors.Wrap(errors.KindStorage, "chunk_session.mark_completed", "failed to mark session", err)
	}
	return nil
}
