package tools

import (
	"ai-salesops-be/internal/pkg/logger"
	"ai-salesops-be/pkg/crm"
	"ai-salesops-be/pkg/llm"
	"ai-salesops-be/pkg/scoring"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedRanker returns pre-scored rankings keyed by kind name.
type fixedRanker struct {
	rankings map[string]scoring.Ranking
	err      error
	calls    int
}

func (f *fixedRanker) Rank(ctx context.Context, store crm.RecordStore, kind scoring.Kind) (scoring.Ranking, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.rankings[kind.Name], nil
}

type stubFollowUp struct {
	text   string
	err    error
	called []string
}

func (s *stubFollowUp) Generate(ctx context.Context, record crm.Record, kind scoring.Kind) (string, error) {
	s.called = append(s.called, kind.Name+":"+record.Name())
	return s.text, s.err
}

func scored(kind scoring.Kind, score int, fields crm.Record) scoring.ScoredRecord {
	return scoring.ScoredRecord{Record: fields, Score: score, Kind: kind}
}

func sampleRanker() *fixedRanker {
	return &fixedRanker{rankings: map[string]scoring.Ranking{
		"lead": {
			scored(scoring.Lead, 92, crm.Record{"Id": "1", "Name": "Bertha Boxer", "Company": "Farmers Coop. of Florida", "Email": "bertha@fcof.net", "Status": "Working - Contacted"}),
			scored(scoring.Lead, 70, crm.Record{"Id": "2", "Name": "Phyllis Cotton", "Company": "Abbott Insurance", "Status": "Open - Not Contacted"}),
			scored(scoring.Lead, 41, crm.Record{"Id": "3", "Name": "Jeff Glimpse", "Company": "Jackson Controls"}),
		},
		"opportunity": {
			scored(scoring.Opportunity, 90, crm.Record{"Id": "a", "Name": "United Oil Installations", "Amount": 1000.0, "StageName": "Negotiation/Review"}),
			scored(scoring.Opportunity, 40, crm.Record{"Id": "b", "Name": "Edge Emergency Generator", "Amount": 2000.0, "StageName": "Prospecting"}),
		},
	}}
}

func newTestCatalogue(r Ranker, f FollowUpWriter) *Registry {
	return NewCatalogue(Deps{
		Store:    &crm.StaticStore{},
		Ranker:   r,
		FollowUp: f,
		Logger:   logger.NewNopLogger(),
	})
}

func invoke(t *testing.T, reg *Registry, name string, args map[string]any) Result {
	t.Helper()
	res, err := reg.Invoke(context.Background(), Call{Name: name, Arguments: args})
	require.NoError(t, err)
	return res
}

func TestCatalogueHasEightTools(t *testing.T) {
	reg := newTestCatalogue(sampleRanker(), &stubFollowUp{})
	assert.Equal(t, []string{
		"top_leads", "top_opportunities", "search_lead", "followup",
		"compare", "pipeline_summary", "opportunity_detail", "all_opportunities_summary",
	}, reg.Names())

	defs := reg.Definitions()
	require.Len(t, defs, 8)
	assert.Equal(t, "object", defs[0].Parameters["type"])
	assert.Equal(t, []string{"name1", "name2"}, defs[4].Parameters["required"])
}

func TestTopLeads(t *testing.T) {
	reg := newTestCatalogue(sampleRanker(), &stubFollowUp{})

	res := invoke(t, reg, "top_leads", map[string]any{"n": 2.0})
	assert.False(t, res.IsError)
	assert.Equal(t, "Top 2 Leads:\n1. Bertha Boxer (Farmers Coop. of Florida) - Score: 92\n2. Phyllis Cotton (Abbott Insurance) - Score: 70\n", res.Text)

	res = invoke(t, reg, "top_leads", nil)
	assert.True(t, strings.HasPrefix(res.Text, "Top 5 Leads:\n"))
	assert.Equal(t, 4, strings.Count(res.Text, "\n"))

	res = invoke(t, reg, "top_leads", map[string]any{"n": "1"})
	assert.Equal(t, "Top 1 Leads:\n1. Bertha Boxer (Farmers Coop. of Florida) - Score: 92\n", res.Text)
}

func TestTopLeadsInvalidArguments(t *testing.T) {
	reg := newTestCatalogue(sampleRanker(), &stubFollowUp{})

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"non numeric", map[string]any{"n": "five"}, "invalid arguments for top_leads: n must be an integer"},
		{"fraction", map[string]any{"n": 2.5}, "invalid arguments for top_leads: n must be an integer"},
		{"zero", map[string]any{"n": 0.0}, "invalid arguments for top_leads: n must be greater than 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := invoke(t, reg, "top_leads", tt.args)
			assert.True(t, res.IsError)
			assert.Equal(t, tt.want, res.Text)
		})
	}
}

func TestTopOpportunities(t *testing.T) {
	reg := newTestCatalogue(sampleRanker(), &stubFollowUp{})

	res := invoke(t, reg, "top_opportunities", map[string]any{"n": 1})
	assert.Equal(t, "Top 1 Opportunities:\n1. United Oil Installations - $1,000 - Score: 90\n", res.Text)
}

func TestSearchLead(t *testing.T) {
	reg := newTestCatalogue(sampleRanker(), &stubFollowUp{})

	res := invoke(t, reg, "search_lead", map[string]any{"name": "bertha"})
	assert.False(t, res.IsError)
	assert.Equal(t, `{
  "Name": "Bertha Boxer",
  "Company": "Farmers Coop. of Florida",
  "Email": "bertha@fcof.net",
  "Status": "Working - Contacted",
  "Score": 92
}`, res.Text)

	res = invoke(t, reg, "search_lead", map[string]any{"name": "jeff"})
	assert.Contains(t, res.Text, `"Email": "N/A"`)

	res = invoke(t, reg, "search_lead", map[string]any{"name": "zelda"})
	assert.False(t, res.IsError)
	assert.Equal(t, "Lead 'zelda' not found", res.Text)

	res = invoke(t, reg, "search_lead", map[string]any{})
	assert.True(t, res.IsError)
	assert.Equal(t, "invalid arguments for search_lead: name is required", res.Text)
}

func TestCompare(t *testing.T) {
	reg := newTestCatalogue(sampleRanker(), &stubFollowUp{})

	res := invoke(t, reg, "compare", map[string]any{"name1": "jeff", "name2": "Bertha"})
	assert.Equal(t, "Comparison:\n1. Bertha Boxer - Score: 92\n2. Jeff Glimpse - Score: 41\n", res.Text)

	res = invoke(t, reg, "compare", map[string]any{"name1": "jeff", "name2": "zelda"})
	assert.Equal(t, "Could not find both leads for comparison", res.Text)

	// One record cannot satisfy both names
	res = invoke(t, reg, "compare", map[string]any{"name1": "bertha", "name2": "boxer"})
	assert.Equal(t, "Could not find both leads for comparison", res.Text)

	// "o" matches Bertha Boxer first, but she is the only match for name2
	res = invoke(t, reg, "compare", map[string]any{"name1": "o", "name2": "bertha"})
	assert.Equal(t, "Comparison:\n1. Bertha Boxer - Score: 92\n2. Phyllis Cotton - Score: 70\n", res.Text)
}

func TestPipelineSummary(t *testing.T) {
	reg := newTestCatalogue(sampleRanker(), &stubFollowUp{})

	res := invoke(t, reg, "pipeline_summary", nil)
	assert.Contains(t, res.Text, "Total Leads: 3 (Avg Score: 67.7)")
	assert.Contains(t, res.Text, "Total Opportunities: 2")
	assert.Contains(t, res.Text, "Pipeline Value: $3,000")
	assert.Contains(t, res.Text, "Avg Opportunity Score: 65.0")
}

func TestPipelineSummaryEmpty(t *testing.T) {
	reg := newTestCatalogue(&fixedRanker{rankings: map[string]scoring.Ranking{}}, &stubFollowUp{})

	res := invoke(t, reg, "pipeline_summary", nil)
	assert.Contains(t, res.Text, "Total Leads: 0 (Avg Score: 0.0)")
	assert.Contains(t, res.Text, "Avg Opportunity Score: 0.0")

	res = invoke(t, reg, "all_opportunities_summary", nil)
	assert.Contains(t, res.Text, "Average Deal Size: $0")
}

func TestFollowUp(t *testing.T) {
	follow := &stubFollowUp{text: "1. Call\n2. Email\n3. Meet"}
	reg := newTestCatalogue(sampleRanker(), follow)

	res := invoke(t, reg, "followup", map[string]any{"name": "phyllis"})
	assert.Equal(t, "1. Call\n2. Email\n3. Meet", res.Text)
	assert.Equal(t, []string{"lead:Phyllis Cotton"}, follow.called)

	res = invoke(t, reg, "followup", map[string]any{"name": "nobody"})
	assert.Equal(t, "Lead 'nobody' not found", res.Text)
}

func TestFollowUpFailureIsFatal(t *testing.T) {
	reg := newTestCatalogue(sampleRanker(), &stubFollowUp{err: llm.ErrRateLimited})

	_, err := reg.Invoke(context.Background(), Call{Name: "followup", Arguments: map[string]any{"name": "bertha"}})
	assert.ErrorIs(t, err, llm.ErrRateLimited)
}

func TestOpportunityDetail(t *testing.T) {
	follow := &stubFollowUp{text: "1. Send contract"}
	reg := newTestCatalogue(sampleRanker(), follow)

	res := invoke(t, reg, "opportunity_detail", map[string]any{"name": "edge"})
	assert.Contains(t, res.Text, "Opportunity: Edge Emergency Generator")
	assert.Contains(t, res.Text, "Score Ranking: #2 out of 2 opportunities")
	assert.Contains(t, res.Text, "Risk Level: High")
	assert.Contains(t, res.Text, "Deal Size: Small")
	assert.Contains(t, res.Text, "Probability: N/A%")
	assert.Contains(t, res.Text, "1. Send contract")

	res = invoke(t, reg, "opportunity_detail", map[string]any{"name": "acme"})
	assert.Equal(t, "Opportunity 'acme' not found", res.Text)
}

func TestAllOpportunitiesSummary(t *testing.T) {
	reg := newTestCatalogue(sampleRanker(), &stubFollowUp{})

	res := invoke(t, reg, "all_opportunities_summary", nil)
	assert.Contains(t, res.Text, "Total Pipeline Value: $3,000")
	assert.Contains(t, res.Text, "Number of Opportunities: 2")
	assert.Contains(t, res.Text, "Average Deal Size: $1,500")
	assert.Contains(t, res.Text, "Hot Deals (Score ≥80): 1")
	assert.Contains(t, res.Text, "Deals Needing Attention (Score <50): 1")
	assert.Contains(t, res.Text, "- Negotiation/Review: 1 deals\n- Prospecting: 1 deals")
	assert.Contains(t, res.Text, "1. United Oil Installations - $1,000 (Score: 90)")
	assert.Contains(t, res.Text, "Total potential revenue at risk: $2,000")
}

func TestStoreErrorIsReported(t *testing.T) {
	reg := newTestCatalogue(&fixedRanker{err: errors.New("INVALID_LOGIN")}, &stubFollowUp{})

	res := invoke(t, reg, "top_opportunities", nil)
	assert.True(t, res.IsError)
	assert.Equal(t, "Could not load opportunities: INVALID_LOGIN", res.Text)
}

func TestUnknownTool(t *testing.T) {
	reg := newTestCatalogue(sampleRanker(), &stubFollowUp{})

	res := invoke(t, reg, "delete_everything", nil)
	assert.True(t, res.IsError)
	assert.Contains(t, res.Text, `unknown tool "delete_everything"`)
	assert.Contains(t, res.Text, "top_leads")
}

func TestToolsAreIdempotent(t *testing.T) {
	reg := newTestCatalogue(sampleRanker(), &stubFollowUp{})

	for _, name := range []string{"top_leads", "pipeline_summary", "all_opportunities_summary"} {
		first := invoke(t, reg, name, nil)
		second := invoke(t, reg, name, nil)
		assert.Equal(t, first, second, name)
	}
}

func TestSearchLeadWithRealScorer(t *testing.T) {
	provider := &namedScores{scores: map[string]string{"Bertha Boxer": "88", "Phyllis Cotton": "oops"}}
	scorer := scoring.NewScorer(provider, logger.NewNopLogger())
	store := &crm.StaticStore{Leads: []crm.Record{
		{"Id": "1", "Name": "Phyllis Cotton", "Company": "Abbott Insurance"},
		{"Id": "2", "Name": "Bertha Boxer", "Company": "Farmers Coop. of Florida"},
	}}
	reg := NewCatalogue(Deps{Store: store, Ranker: scorer, FollowUp: &stubFollowUp{}, Logger: logger.NewNopLogger()})

	res := invoke(t, reg, "top_leads", map[string]any{"n": 2})
	assert.Equal(t, "Top 2 Leads:\n1. Bertha Boxer (Farmers Coop. of Florida) - Score: 88\n2. Phyllis Cotton (Abbott Insurance) - Score: 50\n", res.Text)
}

type namedScores struct {
	scores map[string]string
}

func (n *namedScores) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	return n.Generate(ctx, history[len(history)-1].Content, opts...)
}

func (n *namedScores) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	for name, s := range n.scores {
		if strings.Contains(prompt, name) {
			return s, nil
		}
	}
	return "", errors.New("no score")
}
