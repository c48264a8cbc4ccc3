package service

import (
	"context"
	"fmt"

	"ai-salesops-be/internal/dto"
	"ai-salesops-be/internal/entity"
	"ai-salesops-be/internal/pkg/logger"
	"ai-salesops-be/internal/repository/contract"
	"ai-salesops-be/internal/repository/specification"
	"ai-salesops-be/pkg/agent"
	"ai-salesops-be/pkg/events"
	"ai-salesops-be/pkg/store"

	"github.com/google/uuid"
)

// Responder is satisfied by *agent.Agent.
type Responder interface {
	Respond(ctx context.Context, conv *store.Conversation, text string) *agent.Reply
}

// SessionStore is satisfied by *memory.SessionRepository.
type SessionStore interface {
	Save(session *store.Conversation)
	Get(sessionID string) (*store.Conversation, bool)
	Delete(sessionID string)
}

type IAssistantService interface {
	CreateSession(ctx context.Context) (*dto.CreateSessionResponse, error)
	EnsureSession(ctx context.Context, sessionID string) (*dto.CreateSessionResponse, error)
	GetSession(ctx context.Context, sessionID string) (*dto.SessionHistoryResponse, error)
	ResetSession(ctx context.Context, sessionID string) error
	Chat(ctx context.Context, req *dto.SendChatRequest) (*dto.SendChatResponse, error)
	Transcript(ctx context.Context, sessionID string, q *dto.TranscriptQuery) (*dto.TranscriptResponse, error)
	Suggestions() []dto.SuggestionDTO
}

const defaultTranscriptPage = 50

var suggestions = []dto.SuggestionDTO{
	{Label: "Show me top 5 leads", Query: "Show me top 5 leads"},
	{Label: "Search for Bertha Boxer", Query: "Search for lead named Bertha Boxer"},
	{Label: "Quick pipeline summary", Query: "Give me quick pipeline summary"},
	{Label: "Complete opportunity analysis", Query: "Give me complete opportunity summary"},
	{Label: "Top 3 opportunities", Query: "Show me top 3 opportunities"},
	{Label: "Analyze specific opportunity", Query: "Give me comprehensive analysis of United Oil opportunity"},
	{Label: "Compare leads", Query: "Compare the top 2 leads"},
	{Label: "Generate follow-up", Query: "Generate follow-up for the top lead"},
}

type assistantService struct {
	agent       Responder
	sessions    SessionStore
	transcripts contract.TranscriptRepository
	events      IEventService
	logger      logger.ILogger
}

// NewAssistantService wires the dialogue agent to session storage.
// transcripts may be nil when no database is configured.
func NewAssistantService(
	responder Responder,
	sessions SessionStore,
	transcripts contract.TranscriptRepository,
	eventService IEventService,
	log logger.ILogger,
) IAssistantService {
	return &assistantService{
		agent:       responder,
		sessions:    sessions,
		transcripts: transcripts,
		events:      eventService,
		logger:      log,
	}
}

func (s *assistantService) CreateSession(ctx context.Context) (*dto.CreateSessionResponse, error) {
	conv := store.NewConversation(uuid.NewString())
	s.sessions.Save(conv)

	s.logger.Info("ASSISTANT", "Session created", map[string]interface{}{"session_id": conv.ID})
	return toCreateSessionResponse(conv), nil
}

// EnsureSession returns the session with this id, creating it if needed.
func (s *assistantService) EnsureSession(ctx context.Context, sessionID string) (*dto.CreateSessionResponse, error) {
	if sessionID == "" {
		return s.CreateSession(ctx)
	}
	conv, ok := s.sessions.Get(sessionID)
	if !ok {
		conv = store.NewConversation(sessionID)
		s.sessions.Save(conv)
	}
	return toCreateSessionResponse(conv), nil
}

func (s *assistantService) GetSession(ctx context.Context, sessionID string) (*dto.SessionHistoryResponse, error) {
	conv, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	conv.Lock()
	defer conv.Unlock()

	visible := conv.VisibleTurns()
	turns := make([]dto.ChatTurnDTO, len(visible))
	for i, t := range visible {
		turns[i] = toTurnDTO(t)
	}

	return &dto.SessionHistoryResponse{
		Id:        conv.ID,
		State:     conv.State,
		Turns:     turns,
		UpdatedAt: conv.UpdatedAt,
	}, nil
}

// ResetSession clears the history. Stored transcripts are soft-deleted.
func (s *assistantService) ResetSession(ctx context.Context, sessionID string) error {
	conv, err := s.lookup(sessionID)
	if err != nil {
		return err
	}

	conv.Lock()
	conv.Reset()
	conv.Unlock()

	if s.transcripts != nil {
		if err := s.transcripts.DeleteBySessionId(ctx, sessionID); err != nil {
			s.logger.Warn("ASSISTANT", "Failed to clear transcript", map[string]interface{}{
				"session_id": sessionID,
				"error":      err.Error(),
			})
		}
	}

	s.logger.Info("ASSISTANT", "Session reset", map[string]interface{}{"session_id": sessionID})
	return nil
}

func (s *assistantService) Chat(ctx context.Context, req *dto.SendChatRequest) (*dto.SendChatResponse, error) {
	conv, err := s.lookup(req.SessionId)
	if err != nil {
		return nil, err
	}

	reply := s.agent.Respond(ctx, conv, req.Message)
	s.sessions.Save(conv)

	sent, answer := reply.Sent, reply.Answer
	s.persist(ctx, conv.ID, sent, answer, reply)
	s.events.Emit(ctx, events.AssistantReplied(conv.ID, reply.Iterations, reply.Tools, reply.IsError))

	return &dto.SendChatResponse{
		SessionId:  conv.ID,
		Sent:       toTurnDTO(sent),
		Reply:      toTurnDTO(answer),
		Iterations: reply.Iterations,
		Tools:      reply.Tools,
	}, nil
}

// Transcript pages through the stored history of a session. Without a
// database it falls back to the live session's visible turns.
func (s *assistantService) Transcript(ctx context.Context, sessionID string, q *dto.TranscriptQuery) (*dto.TranscriptResponse, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultTranscriptPage
	}

	if s.transcripts == nil {
		return s.liveTranscript(sessionID, q.Role, limit, q.Offset)
	}

	filters := []specification.Specification{specification.BySessionID{SessionID: sessionID}}
	if q.Role != "" {
		filters = append(filters, specification.ByRole{Role: q.Role})
	}

	total, err := s.transcripts.Count(ctx, filters...)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		if _, err := s.lookup(sessionID); err != nil {
			return nil, err
		}
	}

	rows, err := s.transcripts.FindAll(ctx, append(filters,
		specification.OrderBy{Field: "created_at"},
		specification.Pagination{Limit: limit, Offset: q.Offset},
	)...)
	if err != nil {
		return nil, err
	}

	entries := make([]dto.TranscriptEntryDTO, len(rows))
	for i, r := range rows {
		entries[i] = dto.TranscriptEntryDTO{
			Role:       r.Role,
			Content:    r.Content,
			IsError:    r.IsError,
			Tools:      r.Tools,
			Iterations: r.Iterations,
			CreatedAt:  r.CreatedAt,
		}
	}
	return &dto.TranscriptResponse{SessionId: sessionID, Total: total, Entries: entries}, nil
}

func (s *assistantService) liveTranscript(sessionID, role string, limit, offset int) (*dto.TranscriptResponse, error) {
	conv, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	conv.Lock()
	visible := conv.VisibleTurns()
	conv.Unlock()

	entries := []dto.TranscriptEntryDTO{}
	for _, t := range visible {
		if role != "" && t.Role != role {
			continue
		}
		entries = append(entries, dto.TranscriptEntryDTO{
			Role:      t.Role,
			Content:   t.Content,
			IsError:   t.IsError,
			CreatedAt: t.CreatedAt,
		})
	}

	total := int64(len(entries))
	if offset > len(entries) {
		offset = len(entries)
	}
	end := offset + limit
	if end > len(entries) {
		end = len(entries)
	}
	return &dto.TranscriptResponse{SessionId: sessionID, Total: total, Entries: entries[offset:end]}, nil
}

func (s *assistantService) Suggestions() []dto.SuggestionDTO {
	out := make([]dto.SuggestionDTO, len(suggestions))
	copy(out, suggestions)
	return out
}

func (s *assistantService) lookup(sessionID string) (*store.Conversation, error) {
	conv, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrSessionNotFound, sessionID)
	}
	return conv, nil
}

func (s *assistantService) persist(ctx context.Context, sessionID string, sent, answer store.Turn, reply *agent.Reply) {
	if s.transcripts == nil {
		return
	}

	err := s.transcripts.CreateBulk(ctx, []*entity.ChatTranscript{
		{
			Id:        uuid.New(),
			SessionId: sessionID,
			Role:      sent.Role,
			Content:   sent.Content,
			CreatedAt: sent.CreatedAt,
		},
		{
			Id:         uuid.New(),
			SessionId:  sessionID,
			Role:       answer.Role,
			Content:    answer.Content,
			IsError:    answer.IsError,
			Tools:      reply.Tools,
			Iterations: reply.Iterations,
			CreatedAt:  answer.CreatedAt,
		},
	})
	if err != nil {
		s.logger.Warn("ASSISTANT", "Failed to store transcript", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
	}
}

func toCreateSessionResponse(conv *store.Conversation) *dto.CreateSessionResponse {
	return &dto.CreateSessionResponse{
		Id:        conv.ID,
		State:     conv.State,
		CreatedAt: conv.CreatedAt,
	}
}

func toTurnDTO(t store.Turn) dto.ChatTurnDTO {
	return dto.ChatTurnDTO{
		Role:      t.Role,
		Content:   t.Content,
		IsError:   t.IsError,
		CreatedAt: t.CreatedAt,
	}
}
