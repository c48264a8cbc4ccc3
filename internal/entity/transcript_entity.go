package entity

import (
	"time"

	"github.com/google/uuid"
)

// ChatTranscript is one user-visible chat turn kept for audit.
type ChatTranscript struct {
	Id         uuid.UUID
	SessionId  string
	Role       string
	Content    string
	IsError    bool
	Tools      []string
	Iterations int
	CreatedAt  time.Time
	DeletedAt  *time.Time
	IsDeleted  bool
}
