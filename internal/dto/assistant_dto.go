package dto

import "time"

type CreateSessionResponse struct {
	Id        string    `json:"id"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"created_at"`
}

type ChatTurnDTO struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	IsError   bool      `json:"is_error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type SessionHistoryResponse struct {
	Id        string        `json:"id"`
	State     string        `json:"state"`
	Turns     []ChatTurnDTO `json:"turns"`
	UpdatedAt time.Time     `json:"updated_at"`
}

type SendChatRequest struct {
	SessionId string `json:"session_id" validate:"required"`
	Message   string `json:"message" validate:"required,max=4000"`
}

type SendChatResponse struct {
	SessionId  string      `json:"session_id"`
	Sent       ChatTurnDTO `json:"sent"`
	Reply      ChatTurnDTO `json:"reply"`
	Iterations int         `json:"iterations"`
	Tools      []string    `json:"tools"`
}

type SuggestionDTO struct {
	Label string `json:"label"`
	Query string `json:"query"`
}

type TranscriptQuery struct {
	Role   string `query:"role" json:"role" validate:"omitempty,oneof=user assistant"`
	Limit  int    `query:"limit" json:"limit" validate:"min=0,max=200"`
	Offset int    `query:"offset" json:"offset" validate:"min=0"`
}

type TranscriptEntryDTO struct {
	Role       string    `json:"role"`
	Content    string    `json:"content"`
	IsError    bool      `json:"is_error,omitempty"`
	Tools      []string  `json:"tools,omitempty"`
	Iterations int       `json:"iterations,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type TranscriptResponse struct {
	SessionId string               `json:"session_id"`
	Total     int64                `json:"total"`
	Entries   []TranscriptEntryDTO `json:"entries"`
}
