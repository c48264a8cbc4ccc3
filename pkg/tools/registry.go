package tools

import (
	"ai-salesops-be/internal/pkg/logger"
	"ai-salesops-be/pkg/llm"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrUnknownTool      = errors.New("unknown tool")
	ErrInvalidArguments = errors.New("invalid arguments")
)

// Call names one registered tool and its arguments.
type Call struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Result is the text handed back to the model. IsError marks results the
// model should react to (bad arguments, unknown tool, unreachable CRM).
type Result struct {
	Tool    string `json:"tool"`
	Text    string `json:"text"`
	IsError bool   `json:"is_error"`
}

// Failure is a handler outcome that is reported to the model instead of aborting the request.
type Failure struct {
	Message string
}

func (f *Failure) Error() string {
	return f.Message
}

func failf(format string, args ...any) error {
	return &Failure{Message: fmt.Sprintf(format, args...)}
}

type Param struct {
	Name        string
	Type        string // "integer" or "string"
	Description string
	Required    bool
	Default     any
}

type Tool struct {
	Name        string
	Description string
	Params      []Param
	run         func(ctx context.Context, raw map[string]any) (string, error)
}

// Schema renders the parameters as a JSON schema object.
func (t Tool) Schema() map[string]any {
	properties := map[string]any{}
	required := []string{}
	for _, p := range t.Params {
		prop := map[string]any{
			"type":        p.Type,
			"description": p.Description,
		}
		if p.Default != nil {
			prop["default"] = p.Default
		}
		if p.Type == "integer" {
			prop["minimum"] = 1
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// define binds raw arguments onto a copy of defaults before calling handle.
func define[A any](name, description string, params []Param, defaults A, handle func(context.Context, A) (string, error)) Tool {
	t := Tool{Name: name, Description: description, Params: params}
	t.run = func(ctx context.Context, raw map[string]any) (string, error) {
		args := defaults
		if err := bindArgs(t.Params, raw, &args); err != nil {
			return "", err
		}
		return handle(ctx, args)
	}
	return t
}

// Registry is the fixed tool catalogue. It is read-only after construction.
type Registry struct {
	tools  map[string]Tool
	order  []string
	logger logger.ILogger
}

func NewRegistry(log logger.ILogger, tools ...Tool) *Registry {
	r := &Registry{
		tools:  make(map[string]Tool, len(tools)),
		logger: log,
	}
	for _, t := range tools {
		r.tools[t.Name] = t
		r.order = append(r.order, t.Name)
	}
	return r
}

func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

func (r *Registry) Lookup(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Definitions lists the catalogue in registration order for the model.
func (r *Registry) Definitions() []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		defs = append(defs, llm.ToolDefinition{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Schema(),
		})
	}
	return defs
}

// Invoke runs one call. Unknown tools, bad arguments and Failure outcomes
// come back as error Results; any other handler error is returned.
func (r *Registry) Invoke(ctx context.Context, call Call) (Result, error) {
	start := time.Now()

	t, ok := r.tools[call.Name]
	if !ok {
		r.logger.Warn("TOOLS", "Unknown tool requested", map[string]interface{}{"tool": call.Name})
		return Result{
			Tool:    call.Name,
			Text:    fmt.Sprintf("%s %q. Available tools: %s", ErrUnknownTool, call.Name, strings.Join(r.order, ", ")),
			IsError: true,
		}, nil
	}

	text, err := t.run(ctx, call.Arguments)

	var argErr *ArgumentError
	var failure *Failure
	switch {
	case errors.As(err, &argErr):
		r.logger.Warn("TOOLS", "Invalid tool arguments", map[string]interface{}{
			"tool":  call.Name,
			"error": argErr.Error(),
		})
		return Result{
			Tool:    call.Name,
			Text:    fmt.Sprintf("%s for %s: %s", ErrInvalidArguments, call.Name, argErr.Error()),
			IsError: true,
		}, nil
	case errors.As(err, &failure):
		r.logger.Warn("TOOLS", "Tool reported failure", map[string]interface{}{
			"tool":  call.Name,
			"error": failure.Message,
		})
		return Result{Tool: call.Name, Text: failure.Message, IsError: true}, nil
	case err != nil:
		r.logger.Error("TOOLS", "Tool execution failed", map[string]interface{}{
			"tool":  call.Name,
			"error": err.Error(),
		})
		return Result{}, fmt.Errorf("tool %s: %w", call.Name, err)
	}

	r.logger.Info("TOOLS", "Tool executed", map[string]interface{}{
		"tool":        call.Name,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return Result{Tool: call.Name, Text: text}, nil
}
