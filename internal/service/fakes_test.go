package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"ai-salesops-be/internal/pkg/logger"
	"ai-salesops-be/pkg/crm"
	"ai-salesops-be/pkg/events"
	"ai-salesops-be/pkg/followup"
	"ai-salesops-be/pkg/llm"
	"ai-salesops-be/pkg/scoring"
)

// namedScores answers scoring prompts by the record name in the prompt.
type namedScores struct {
	scores map[string]string
	err    error
}

func (n *namedScores) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	return n.Generate(ctx, history[len(history)-1].Content, opts...)
}

func (n *namedScores) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	if n.err != nil {
		return "", n.err
	}
	for name, score := range n.scores {
		if strings.Contains(prompt, fmt.Sprintf(`"Name":%q`, name)) {
			return score, nil
		}
	}
	return "50", nil
}

type fixedText struct {
	text string
	err  error
}

func (f *fixedText) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	return f.text, f.err
}

func (f *fixedText) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return f.text, f.err
}

// recordingEvents captures emitted events.
type recordingEvents struct {
	mu  sync.Mutex
	got []events.Event
}

func (r *recordingEvents) Emit(ctx context.Context, e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, e)
}

func (r *recordingEvents) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.got))
	for i, e := range r.got {
		out[i] = e.EventType()
	}
	return out
}

func (r *recordingEvents) last() events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.got) == 0 {
		return nil
	}
	return r.got[len(r.got)-1]
}

type recordingPublisher struct {
	payloads []interface{}
	err      error
}

func (p *recordingPublisher) Publish(ctx context.Context, payload interface{}) error {
	if p.err != nil {
		return p.err
	}
	p.payloads = append(p.payloads, payload)
	return nil
}

func sampleStore() *crm.StaticStore {
	return &crm.StaticStore{
		Leads: []crm.Record{
			{"Id": "00Q1", "Name": "Phyllis Cotton", "Company": "Abbott Insurance", "Status": "Open - Not Contacted", "Rating": "Warm"},
			{"Id": "00Q2", "Name": "Bertha Boxer", "Company": "Farmers Coop. of Florida", "Status": "Working - Contacted", "Rating": "Hot"},
			{"Id": "00Q3", "Name": "Jeff Glimpse", "Company": "Jackson Controls", "Status": "Open - Not Contacted", "Rating": "Cold"},
		},
		Opportunities: []crm.Record{
			{"Id": "006A", "Name": "United Oil Installations", "Amount": 270000.0, "StageName": "Negotiation/Review", "Probability": 90.0},
			{"Id": "006B", "Name": "Edge Emergency Generator", "Amount": 75000.0, "StageName": "Id. Decision Makers", "Probability": 60.0},
			{"Id": "006C", "Name": "Grand Hotels Kitchen", "Amount": "120000", "StageName": "Negotiation/Review"},
		},
	}
}

func sampleScores() *namedScores {
	return &namedScores{scores: map[string]string{
		"Bertha Boxer":             "90",
		"Phyllis Cotton":           "65",
		"Jeff Glimpse":             "30",
		"United Oil Installations": "85",
		"Edge Emergency Generator": "55",
		"Grand Hotels Kitchen":     "100",
	}}
}

func newTestScorer(provider llm.LLMProvider) *scoring.Scorer {
	return scoring.NewScorer(provider, logger.NewNopLogger())
}

func newTestFollowUp(text string, err error) *followup.Generator {
	return followup.NewGenerator(&fixedText{text: text, err: err}, logger.NewNopLogger(), followup.DefaultTemperature, time.Second)
}
