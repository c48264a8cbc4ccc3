package mapper

import (
	"testing"
	"time"

	"ai-salesops-be/internal/entity"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestTranscriptMapperKeepsMetadata(t *testing.T) {
	m := NewTranscriptMapper()
	in := &entity.ChatTranscript{
		Id:         uuid.New(),
		SessionId:  "s-1",
		Role:       "assistant",
		Content:    "Bertha Boxer ranks first.",
		Tools:      []string{"top_leads", "compare"},
		Iterations: 3,
		CreatedAt:  time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}

	out := m.ToEntity(m.ToModel(in))
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("mapped transcript mismatch (-want +got):\n%s", diff)
	}
}

func TestTranscriptMapperUserTurnHasNoMetadata(t *testing.T) {
	m := NewTranscriptMapper()
	model := m.ToModel(&entity.ChatTranscript{SessionId: "s-1", Role: "user", Content: "hi"})
	assert.Empty(t, model.Metadata)
	assert.Nil(t, m.ToModel(nil))
	assert.Nil(t, m.ToEntity(nil))
}
