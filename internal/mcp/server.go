// Package mcp exposes the scoring pipeline and the dialogue agent as MCP
// tools so editors and other agents can query the CRM over stdio.
package mcp

import (
	"context"
	"fmt"
	"time"

	"ai-salesops-be/internal/pkg/logger"
	"ai-salesops-be/internal/repository/memory"
	"ai-salesops-be/pkg/agent"
	"ai-salesops-be/pkg/crm"
	"ai-salesops-be/pkg/scoring"
	"ai-salesops-be/pkg/store"
	"ai-salesops-be/pkg/tools"

	"github.com/google/uuid"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const defaultLimit = 10

// ToolInvoker is satisfied by *tools.Registry.
type ToolInvoker interface {
	Names() []string
	Invoke(ctx context.Context, call tools.Call) (tools.Result, error)
}

// Responder is satisfied by *agent.Agent.
type Responder interface {
	Respond(ctx context.Context, conv *store.Conversation, text string) *agent.Reply
}

type Deps struct {
	Store    crm.RecordStore
	Ranker   tools.Ranker
	FollowUp tools.FollowUpWriter
	Tools    ToolInvoker
	Agent    Responder
	Logger   logger.ILogger
}

type Server struct {
	MCPServer *sdkmcp.Server

	deps     Deps
	sessions *memory.SessionRepository
}

func NewServer(version string, deps Deps) *Server {
	s := &Server{
		MCPServer: sdkmcp.NewServer(
			&sdkmcp.Implementation{Name: "salesops", Version: version},
			nil,
		),
		deps:     deps,
		sessions: memory.NewSessionRepository(time.Hour),
	}
	s.registerTools()
	return s
}

// Run serves over stdin/stdout until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.deps.Logger.Info("MCP", "Serving over stdio", nil)
	return s.MCPServer.Run(ctx, &sdkmcp.StdioTransport{})
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "rank_records",
		Description: "Score and rank open leads or opportunities. Returns the top records by score.",
	}, s.handleRank)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "get_record",
		Description: "Get one lead or opportunity by CRM id, with its score and rank position.",
	}, s.handleGetRecord)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "generate_followup",
		Description: "Generate three follow-up actions for a lead or opportunity by CRM id.",
	}, s.handleFollowUp)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "run_pipeline_tool",
		Description: "Run one assistant pipeline tool directly (top_leads, search_lead, compare, ...).",
	}, s.handleRunTool)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "ask_assistant",
		Description: "Ask the sales assistant a question. Pass the returned session_id to continue the conversation.",
	}, s.handleAsk)
}

// --- Tool input/output types ---

type rankInput struct {
	Kind  string `json:"kind" jsonschema:"lead or opportunity"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum records to return (default 10)"`
}

type rankedRecord struct {
	Rank  int    `json:"rank"`
	Score int    `json:"score"`
	ID    string `json:"id"`
	Name  string `json:"name"`
}

type rankOutput struct {
	Kind         string         `json:"kind"`
	Total        int            `json:"total"`
	AverageScore float64        `json:"average_score"`
	Records      []rankedRecord `json:"records"`
}

type recordInput struct {
	Kind string `json:"kind" jsonschema:"lead or opportunity"`
	ID   string `json:"id" jsonschema:"CRM record id"`
}

type recordOutput struct {
	Rank   int            `json:"rank"`
	Of     int            `json:"of"`
	Score  int            `json:"score"`
	Record map[string]any `json:"record"`
}

type followUpOutput struct {
	Name  string `json:"name"`
	Steps string `json:"steps"`
}

type runToolInput struct {
	Name      string         `json:"name" jsonschema:"pipeline tool name"`
	Arguments map[string]any `json:"arguments,omitempty" jsonschema:"tool arguments"`
}

type runToolOutput struct {
	Tool    string `json:"tool"`
	Text    string `json:"text"`
	IsError bool   `json:"is_error"`
}

type askInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"conversation to continue; omit to start a new one"`
	Message   string `json:"message" jsonschema:"question for the assistant"`
}

type askOutput struct {
	SessionID  string   `json:"session_id"`
	Reply      string   `json:"reply"`
	IsError    bool     `json:"is_error"`
	Iterations int      `json:"iterations"`
	Tools      []string `json:"tools"`
}

// --- Handlers ---

func (s *Server) handleRank(ctx context.Context, _ *sdkmcp.CallToolRequest, in rankInput) (*sdkmcp.CallToolResult, rankOutput, error) {
	kind, err := scoring.KindByName(in.Kind)
	if err != nil {
		return nil, rankOutput{}, err
	}
	ranking, err := s.deps.Ranker.Rank(ctx, s.deps.Store, kind)
	if err != nil {
		return nil, rankOutput{}, err
	}

	limit := in.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	out := rankOutput{
		Kind:         kind.Name,
		Total:        len(ranking),
		AverageScore: ranking.AverageScore(),
		Records:      []rankedRecord{},
	}
	for i, r := range ranking.Top(limit) {
		out.Records = append(out.Records, rankedRecord{Rank: i + 1, Score: r.Score, ID: r.Record.ID(), Name: r.Name()})
	}
	return nil, out, nil
}

func (s *Server) handleGetRecord(ctx context.Context, _ *sdkmcp.CallToolRequest, in recordInput) (*sdkmcp.CallToolResult, recordOutput, error) {
	kind, err := scoring.KindByName(in.Kind)
	if err != nil {
		return nil, recordOutput{}, err
	}
	ranking, err := s.deps.Ranker.Rank(ctx, s.deps.Store, kind)
	if err != nil {
		return nil, recordOutput{}, err
	}
	scored, idx, ok := ranking.FindByID(in.ID)
	if !ok {
		return nil, recordOutput{}, fmt.Errorf("%w: %s", crm.ErrRecordNotFound, in.ID)
	}
	return nil, recordOutput{Rank: idx + 1, Of: len(ranking), Score: scored.Score, Record: scored.Fields()}, nil
}

func (s *Server) handleFollowUp(ctx context.Context, _ *sdkmcp.CallToolRequest, in recordInput) (*sdkmcp.CallToolResult, followUpOutput, error) {
	kind, err := scoring.KindByName(in.Kind)
	if err != nil {
		return nil, followUpOutput{}, err
	}
	records, err := kind.Load(ctx, s.deps.Store)
	if err != nil {
		return nil, followUpOutput{}, err
	}
	record, err := crm.FindByID(records, in.ID)
	if err != nil {
		return nil, followUpOutput{}, err
	}
	steps, err := s.deps.FollowUp.Generate(ctx, record, kind)
	if err != nil {
		return nil, followUpOutput{}, err
	}
	return nil, followUpOutput{Name: record.Name(), Steps: steps}, nil
}

func (s *Server) handleRunTool(ctx context.Context, _ *sdkmcp.CallToolRequest, in runToolInput) (*sdkmcp.CallToolResult, runToolOutput, error) {
	result, err := s.deps.Tools.Invoke(ctx, tools.Call{Name: in.Name, Arguments: in.Arguments})
	if err != nil {
		return nil, runToolOutput{}, err
	}
	return nil, runToolOutput{Tool: result.Tool, Text: result.Text, IsError: result.IsError}, nil
}

func (s *Server) handleAsk(ctx context.Context, _ *sdkmcp.CallToolRequest, in askInput) (*sdkmcp.CallToolResult, askOutput, error) {
	if in.Message == "" {
		return nil, askOutput{}, fmt.Errorf("message is required")
	}

	sessionID := in.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	conv, ok := s.sessions.Get(sessionID)
	if !ok {
		conv = store.NewConversation(sessionID)
	}

	reply := s.deps.Agent.Respond(ctx, conv, in.Message)
	s.sessions.Save(conv)

	return nil, askOutput{
		SessionID:  sessionID,
		Reply:      reply.Text,
		IsError:    reply.IsError,
		Iterations: reply.Iterations,
		Tools:      reply.Tools,
	}, nil
}
