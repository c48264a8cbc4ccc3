package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ai-salesops-be/internal/dto"
	"ai-salesops-be/internal/pkg/serverutils"
	"ai-salesops-be/pkg/crm"
	"ai-salesops-be/pkg/store"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPipeline struct {
	lastLimit int
	lastTop   int
	refresh   *dto.RefreshRequest
}

func (s *stubPipeline) Rank(ctx context.Context, kind string, limit int) (*dto.RankingResponse, error) {
	if kind != "lead" && kind != "opportunity" {
		return nil, fmt.Errorf("%w: %s", crm.ErrUnknownKind, kind)
	}
	s.lastLimit = limit
	return &dto.RankingResponse{Kind: kind, Total: 1, Records: []dto.ScoredRecordDTO{
		{Rank: 1, Score: 90, Record: crm.Record{"Id": "00Q2", "Name": "Bertha Boxer"}},
	}}, nil
}

func (s *stubPipeline) GetRecord(ctx context.Context, kind, id string) (*dto.RecordDetailResponse, error) {
	if id != "00Q2" {
		return nil, fmt.Errorf("%w: %s", crm.ErrRecordNotFound, id)
	}
	return &dto.RecordDetailResponse{Kind: kind, Of: 3}, nil
}

func (s *stubPipeline) FollowUp(ctx context.Context, req *dto.FollowUpRequest) (*dto.FollowUpResponse, error) {
	return &dto.FollowUpResponse{Kind: req.Kind, RecordId: req.RecordId, Steps: "1. Call"}, nil
}

func (s *stubPipeline) Dashboard(ctx context.Context, top int) (*dto.DashboardResponse, error) {
	s.lastTop = top
	return &dto.DashboardResponse{TotalLeads: 3}, nil
}

func (s *stubPipeline) Refresh(ctx context.Context, req *dto.RefreshRequest) (*dto.RefreshResponse, error) {
	s.refresh = req
	return &dto.RefreshResponse{JobId: "job-1", Kinds: []string{"lead", "opportunity"}}, nil
}

type stubAssistant struct{}

func (stubAssistant) CreateSession(ctx context.Context) (*dto.CreateSessionResponse, error) {
	return &dto.CreateSessionResponse{Id: "s1", State: store.StateAwaitingInput}, nil
}

func (s stubAssistant) EnsureSession(ctx context.Context, id string) (*dto.CreateSessionResponse, error) {
	return s.CreateSession(ctx)
}

func (stubAssistant) GetSession(ctx context.Context, id string) (*dto.SessionHistoryResponse, error) {
	if id != "s1" {
		return nil, fmt.Errorf("%w: %s", store.ErrSessionNotFound, id)
	}
	return &dto.SessionHistoryResponse{Id: id}, nil
}

func (stubAssistant) ResetSession(ctx context.Context, id string) error {
	if id != "s1" {
		return store.ErrSessionNotFound
	}
	return nil
}

func (stubAssistant) Chat(ctx context.Context, req *dto.SendChatRequest) (*dto.SendChatResponse, error) {
	return &dto.SendChatResponse{
		SessionId: req.SessionId,
		Reply:     dto.ChatTurnDTO{Role: store.RoleAssistant, Content: "Error: model unavailable", IsError: true},
	}, nil
}

func (stubAssistant) Transcript(ctx context.Context, id string, q *dto.TranscriptQuery) (*dto.TranscriptResponse, error) {
	return &dto.TranscriptResponse{SessionId: id, Total: int64(q.Limit)}, nil
}

func (stubAssistant) Suggestions() []dto.SuggestionDTO {
	return []dto.SuggestionDTO{{Label: "Top leads", Query: "Show me top 5 leads"}}
}

func newTestApp(pipeline *stubPipeline) *fiber.App {
	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	api := app.Group("/api")
	guard := serverutils.JwtMiddleware("")
	NewPipelineController(pipeline).RegisterRoutes(api, guard)
	NewAssistantController(stubAssistant{}).RegisterRoutes(api, guard)
	return app
}

func do(t *testing.T, app *fiber.App, method, path, body string) (int, serverutils.Response) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out serverutils.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestRankingRoutes(t *testing.T) {
	pipeline := &stubPipeline{}
	app := newTestApp(pipeline)

	code, res := do(t, app, http.MethodGet, "/api/pipeline/v1/leads?limit=5", "")
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, res.Success)
	assert.Equal(t, 5, pipeline.lastLimit)

	code, _ = do(t, app, http.MethodGet, "/api/pipeline/v1/opportunities?limit=9999", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestShowRecordStatusCodes(t *testing.T) {
	app := newTestApp(&stubPipeline{})

	code, _ := do(t, app, http.MethodGet, "/api/pipeline/v1/lead/00Q2", "")
	assert.Equal(t, http.StatusOK, code)

	code, res := do(t, app, http.MethodGet, "/api/pipeline/v1/lead/00Q9", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, res.Success)

	code, _ = do(t, app, http.MethodGet, "/api/pipeline/v1/contact/00Q2", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestFollowUpValidation(t *testing.T) {
	app := newTestApp(&stubPipeline{})

	code, res := do(t, app, http.MethodPost, "/api/pipeline/v1/followup", `{"kind":"account","record_id":"1"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, res.Message, "Validation failed")

	code, _ = do(t, app, http.MethodPost, "/api/pipeline/v1/followup", `{"kind":"lead","record_id":"00Q2"}`)
	assert.Equal(t, http.StatusOK, code)
}

func TestDashboardTopParam(t *testing.T) {
	pipeline := &stubPipeline{}
	app := newTestApp(pipeline)

	code, _ := do(t, app, http.MethodGet, "/api/pipeline/v1/dashboard", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 10, pipeline.lastTop)

	do(t, app, http.MethodGet, "/api/pipeline/v1/dashboard?top=3", "")
	assert.Equal(t, 3, pipeline.lastTop)
}

func TestRefreshAcceptsEmptyBody(t *testing.T) {
	pipeline := &stubPipeline{}
	app := newTestApp(pipeline)

	code, res := do(t, app, http.MethodPost, "/api/pipeline/v1/refresh", "")
	assert.Equal(t, http.StatusAccepted, code)
	assert.True(t, res.Success)
	require.NotNil(t, pipeline.refresh)
	assert.Empty(t, pipeline.refresh.Kinds)
}

func TestAssistantRoutes(t *testing.T) {
	app := newTestApp(&stubPipeline{})

	code, _ := do(t, app, http.MethodPost, "/api/assistant/v1/sessions", "")
	assert.Equal(t, http.StatusCreated, code)

	code, _ = do(t, app, http.MethodGet, "/api/assistant/v1/sessions/nope", "")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = do(t, app, http.MethodDelete, "/api/assistant/v1/sessions/s1", "")
	assert.Equal(t, http.StatusOK, code)

	code, _ = do(t, app, http.MethodPost, "/api/assistant/v1/chat", `{"session_id":"s1"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, res := do(t, app, http.MethodPost, "/api/assistant/v1/chat", `{"session_id":"s1","message":"hi"}`)
	assert.Equal(t, http.StatusOK, code)
	data := res.Data.(map[string]interface{})
	assert.Equal(t, true, data["reply"].(map[string]interface{})["is_error"])

	code, _ = do(t, app, http.MethodGet, "/api/assistant/v1/suggestions", "")
	assert.Equal(t, http.StatusOK, code)

	code, res = do(t, app, http.MethodGet, "/api/assistant/v1/sessions/s1/transcript?limit=7", "")
	assert.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 7, res.Data.(map[string]interface{})["total"])

	code, _ = do(t, app, http.MethodGet, "/api/assistant/v1/sessions/s1/transcript?role=tool", "")
	assert.Equal(t, http.StatusBadRequest, code)
}
