package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// ToolDefinition describes a callable tool. Parameters is a JSON schema object.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ToolSelection is the model's request to run one tool.
type ToolSelection struct {
	Name      string
	Arguments map[string]any
}

// Completion is either a tool selection or a final text answer.
type Completion struct {
	Text     string
	ToolCall *ToolSelection
}

func (c *Completion) IsToolCall() bool {
	return c != nil && c.ToolCall != nil
}

// ToolCallingProvider is the structured variant used by the dialogue loop.
type ToolCallingProvider interface {
	ChatWithTools(ctx context.Context, history []Message, tools []ToolDefinition, options ...Option) (*Completion, error)
}

// AsToolCaller returns p itself when it supports native tool calling,
// otherwise a JSON-protocol adapter around it.
func AsToolCaller(p LLMProvider) ToolCallingProvider {
	if tc, ok := p.(ToolCallingProvider); ok {
		return tc
	}
	return &JSONToolCaller{Provider: p}
}

// JSONToolCaller asks a plain chat model to answer with a JSON decision object.
type JSONToolCaller struct {
	Provider LLMProvider
}

var _ ToolCallingProvider = (*JSONToolCaller)(nil)

type jsonDecision struct {
	Tool      string         `json:"tool"`
	Arguments map[string]any `json:"arguments"`
	Answer    string         `json:"answer"`
}

func (j *JSONToolCaller) ChatWithTools(ctx context.Context, history []Message, tools []ToolDefinition, options ...Option) (*Completion, error) {
	messages := make([]Message, 0, len(history)+1)
	messages = append(messages, Message{Role: RoleSystem, Content: buildDecisionProtocol(tools)})
	for _, m := range history {
		messages = append(messages, flattenToolMessage(m))
	}

	response, err := j.Provider.Chat(ctx, messages, options...)
	if err != nil {
		return nil, err
	}
	return ParseDecision(response), nil
}

// ParseDecision extracts a decision object from model text.
// Text without a usable JSON object is treated as the final answer.
func ParseDecision(response string) *Completion {
	trimmed := strings.TrimSpace(response)
	jsonContent := extractJSON(trimmed)
	if jsonContent == "" {
		return &Completion{Text: trimmed}
	}

	var d jsonDecision
	if err := json.Unmarshal([]byte(jsonContent), &d); err != nil {
		return &Completion{Text: trimmed}
	}

	if d.Tool != "" {
		if d.Arguments == nil {
			d.Arguments = map[string]any{}
		}
		return &Completion{ToolCall: &ToolSelection{Name: d.Tool, Arguments: d.Arguments}}
	}
	if d.Answer != "" {
		return &Completion{Text: d.Answer}
	}
	return &Completion{Text: trimmed}
}

func buildDecisionProtocol(tools []ToolDefinition) string {
	var prompt strings.Builder

	prompt.WriteString("<tools>\n")
	for _, t := range tools {
		params, _ := json.Marshal(t.Parameters)
		prompt.WriteString(fmt.Sprintf("- %s: %s\n  parameters: %s\n", t.Name, t.Description, params))
	}
	prompt.WriteString("</tools>\n\n")

	prompt.WriteString("<output_format>\n")
	prompt.WriteString("Respond with ONLY valid JSON, one of:\n")
	prompt.WriteString("{\"tool\": \"<tool name>\", \"arguments\": {<argument name>: <value>}}\n")
	prompt.WriteString("{\"answer\": \"<final answer for the user>\"}\n")
	prompt.WriteString("Call one tool at a time. Answer only when the tool results above are enough.\n")
	prompt.WriteString("</output_format>")

	return prompt.String()
}

// flattenToolMessage renders tool traffic as plain chat turns for models
// without a tool role.
func flattenToolMessage(m Message) Message {
	if m.Role != RoleTool {
		return m
	}
	return Message{
		Role:    RoleUser,
		Content: fmt.Sprintf("<tool_result name=%q>\n%s\n</tool_result>", m.Name, m.Content),
	}
}

func extractJSON(response string) string {
	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")

	if startIdx == -1 || endIdx == -1 || endIdx <= startIdx {
		return ""
	}

	return response[startIdx : endIdx+1]
}
