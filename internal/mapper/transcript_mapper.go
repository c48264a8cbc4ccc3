package mapper

import (
	"encoding/json"
	"time"

	"ai-salesops-be/internal/entity"
	"ai-salesops-be/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type TranscriptMapper struct{}

func NewTranscriptMapper() *TranscriptMapper {
	return &TranscriptMapper{}
}

type transcriptMetadata struct {
	Tools      []string `json:"tools,omitempty"`
	Iterations int      `json:"iterations,omitempty"`
}

func (m *TranscriptMapper) ToEntity(t *model.ChatTranscript) *entity.ChatTranscript {
	if t == nil {
		return nil
	}

	var meta transcriptMetadata
	if len(t.Metadata) > 0 {
		// Unreadable metadata is dropped; the turn itself is still valid.
		_ = json.Unmarshal(t.Metadata, &meta)
	}

	var deletedAt *time.Time
	if t.DeletedAt.Valid {
		d := t.DeletedAt.Time
		deletedAt = &d
	}

	return &entity.ChatTranscript{
		Id:         t.Id,
		SessionId:  t.SessionId,
		Role:       t.Role,
		Content:    t.Content,
		IsError:    t.IsError,
		Tools:      meta.Tools,
		Iterations: meta.Iterations,
		CreatedAt:  t.CreatedAt,
		DeletedAt:  deletedAt,
		IsDeleted:  t.DeletedAt.Valid,
	}
}

func (m *TranscriptMapper) ToModel(t *entity.ChatTranscript) *model.ChatTranscript {
	if t == nil {
		return nil
	}

	var metadata datatypes.JSON
	if len(t.Tools) > 0 || t.Iterations > 0 {
		raw, err := json.Marshal(transcriptMetadata{Tools: t.Tools, Iterations: t.Iterations})
		if err == nil {
			metadata = datatypes.JSON(raw)
		}
	}

	var deletedAt gorm.DeletedAt
	if t.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *t.DeletedAt, Valid: true}
	} else if t.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	return &model.ChatTranscript{
		Id:        t.Id,
		SessionId: t.SessionId,
		Role:      t.Role,
		Content:   t.Content,
		IsError:   t.IsError,
		Metadata:  metadata,
		CreatedAt: t.CreatedAt,
		DeletedAt: deletedAt,
	}
}

func (m *TranscriptMapper) ToEntities(models []*model.ChatTranscript) []*entity.ChatTranscript {
	entities := make([]*entity.ChatTranscript, len(models))
	for i, t := range models {
		entities[i] = m.ToEntity(t)
	}
	return entities
}
