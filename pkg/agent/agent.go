package agent

import (
	"ai-salesops-be/internal/pkg/logger"
	"ai-salesops-be/pkg/llm"
	"ai-salesops-be/pkg/store"
	"ai-salesops-be/pkg/tools"
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const DefaultMaxIterations = 8

// ToolSet is satisfied by *tools.Registry.
type ToolSet interface {
	Definitions() []llm.ToolDefinition
	Invoke(ctx context.Context, call tools.Call) (tools.Result, error)
}

// Reply is the outcome of one user message.
type Reply struct {
	Text       string   `json:"text"`
	IsError    bool     `json:"is_error"`
	Iterations int      `json:"iterations"`
	Tools      []string `json:"tools"`

	// Sent and Answer are the visible turns this request appended.
	Sent   store.Turn `json:"-"`
	Answer store.Turn `json:"-"`
}

// Agent runs the tool-selection loop for a conversation.
type Agent struct {
	provider      llm.ToolCallingProvider
	tools         ToolSet
	logger        logger.ILogger
	maxIterations int
	timeout       time.Duration
	tracer        trace.Tracer
}

func New(provider llm.ToolCallingProvider, toolSet ToolSet, log logger.ILogger, maxIterations int, timeout time.Duration) *Agent {
	if maxIterations < 1 {
		maxIterations = DefaultMaxIterations
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Agent{
		provider:      provider,
		tools:         toolSet,
		logger:        log,
		maxIterations: maxIterations,
		timeout:       timeout,
		tracer:        otel.Tracer("ai-salesops-be/pkg/agent"),
	}
}

func (a *Agent) MaxIterations() int {
	return a.maxIterations
}

// Respond appends the user text, loops until the model answers or the
// iteration cap is hit, and records the outcome as an assistant turn.
// It always returns a Reply; failures become "Error: ..." turns.
func (a *Agent) Respond(ctx context.Context, conv *store.Conversation, text string) *Reply {
	conv.Lock()
	defer conv.Unlock()

	ctx, span := a.tracer.Start(ctx, "agent.Respond", trace.WithAttributes(
		attribute.String("session_id", conv.ID),
	))
	defer span.End()

	start := time.Now()
	sent := conv.Append(store.Turn{Role: store.RoleUser, Content: text, Visible: true})

	defs := a.tools.Definitions()
	system := buildSystemPrompt(defs)
	reply := &Reply{Tools: []string{}, Sent: sent}
	reminded, remind := false, false

	for reply.Iterations < a.maxIterations {
		reply.Iterations++
		conv.SetState(store.StateSelectingTool)

		history := a.history(conv, system)
		if remind {
			history = append(history, llm.Message{Role: llm.RoleUser, Content: groundingReminder})
			remind = false
		}

		completion, err := a.decide(ctx, history, defs)
		if err != nil {
			return a.fail(conv, reply, err)
		}

		if completion.IsToolCall() {
			conv.SetState(store.StateExecutingTool)
			call := tools.Call{Name: completion.ToolCall.Name, Arguments: completion.ToolCall.Arguments}

			result, err := a.tools.Invoke(ctx, call)
			if err != nil {
				return a.fail(conv, reply, err)
			}

			conv.Append(store.Turn{
				Role:    store.RoleTool,
				Tool:    call.Name,
				Content: result.Text,
				IsError: result.IsError,
			})
			reply.Tools = append(reply.Tools, call.Name)
			a.logger.Debug("AGENT", "Tool result recorded", map[string]interface{}{
				"session_id": conv.ID,
				"tool":       call.Name,
				"is_error":   result.IsError,
				"iteration":  reply.Iterations,
			})
			continue
		}

		answer := strings.TrimSpace(completion.Text)
		if answer == "" {
			return a.fail(conv, reply, llm.ErrEmptyResponse)
		}

		// Ask once for grounding when nothing in the session came from a tool.
		if !reminded && !conv.HasToolResult() && reply.Iterations < a.maxIterations {
			reminded, remind = true, true
			continue
		}

		conv.SetState(store.StateResponding)
		reply.Answer = conv.Append(store.Turn{Role: store.RoleAssistant, Content: answer, Visible: true})
		conv.SetState(store.StateAwaitingInput)

		reply.Text = answer
		a.logger.Info("AGENT", "Answer produced", map[string]interface{}{
			"session_id":  conv.ID,
			"iterations":  reply.Iterations,
			"tools":       reply.Tools,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		return reply
	}

	a.logger.Warn("AGENT", "Iteration cap reached", map[string]interface{}{
		"session_id": conv.ID,
		"limit":      a.maxIterations,
		"tools":      reply.Tools,
	})
	reply.Text = exhaustedMessage(a.maxIterations)
	reply.IsError = true
	reply.Answer = conv.Append(store.Turn{Role: store.RoleAssistant, Content: reply.Text, Visible: true, IsError: true})
	conv.SetState(store.StateAwaitingInput)
	return reply
}

func (a *Agent) decide(ctx context.Context, history []llm.Message, defs []llm.ToolDefinition) (*llm.Completion, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	completion, err := a.provider.ChatWithTools(callCtx, history, defs, llm.WithTemperature(0))
	if err != nil {
		return nil, err
	}
	if completion == nil {
		return nil, llm.ErrEmptyResponse
	}
	return completion, nil
}

func (a *Agent) fail(conv *store.Conversation, reply *Reply, err error) *Reply {
	a.logger.Error("AGENT", "Request failed", map[string]interface{}{
		"session_id": conv.ID,
		"iteration":  reply.Iterations,
		"error":      err.Error(),
	})

	reply.Text = fmt.Sprintf("Error: %s", err.Error())
	reply.IsError = true
	reply.Answer = conv.Append(store.Turn{Role: store.RoleAssistant, Content: reply.Text, Visible: true, IsError: true})
	conv.SetState(store.StateAwaitingInput)
	return reply
}

// history maps the conversation onto provider messages. Error turns stay in
// so the model can see what went wrong on earlier requests.
func (a *Agent) history(conv *store.Conversation, system string) []llm.Message {
	messages := make([]llm.Message, 0, len(conv.Turns)+1)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: system})

	for _, t := range conv.Turns {
		switch t.Role {
		case store.RoleTool:
			messages = append(messages, llm.Message{Role: llm.RoleTool, Name: t.Tool, Content: t.Content})
		case store.RoleAssistant:
			messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: t.Content})
		default:
			messages = append(messages, llm.Message{Role: llm.RoleUser, Content: t.Content})
		}
	}
	return messages
}
