package tools

import (
	"ai-salesops-be/internal/pkg/logger"
	"ai-salesops-be/pkg/crm"
	"ai-salesops-be/pkg/scoring"
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const defaultTopN = 5

// Ranker is satisfied by *scoring.Scorer.
type Ranker interface {
	Rank(ctx context.Context, store crm.RecordStore, kind scoring.Kind) (scoring.Ranking, error)
}

// FollowUpWriter is satisfied by *followup.Generator.
type FollowUpWriter interface {
	Generate(ctx context.Context, record crm.Record, kind scoring.Kind) (string, error)
}

type Deps struct {
	Store    crm.RecordStore
	Ranker   Ranker
	FollowUp FollowUpWriter
	Logger   logger.ILogger
}

type topArgs struct {
	N int `json:"n" validate:"gt=0"`
}

type nameArgs struct {
	Name string `json:"name" validate:"required"`
}

type compareArgs struct {
	Name1 string `json:"name1" validate:"required"`
	Name2 string `json:"name2" validate:"required"`
}

type noArgs struct{}

type catalogue struct {
	Deps
}

// NewCatalogue builds the registry of pipeline tools.
func NewCatalogue(deps Deps) *Registry {
	c := &catalogue{Deps: deps}

	nParam := []Param{{Name: "n", Type: "integer", Description: "How many records to return", Default: defaultTopN}}
	nameParam := func(desc string) []Param {
		return []Param{{Name: "name", Type: "string", Description: desc, Required: true}}
	}

	return NewRegistry(deps.Logger,
		define("top_leads",
			"Get top N prioritized leads with their scores. Use this when the user asks about best leads or top leads.",
			nParam, topArgs{N: defaultTopN}, c.topLeads),
		define("top_opportunities",
			"Get top N opportunities with conversion scores. Use this when the user asks about best opportunities or deals.",
			nParam, topArgs{N: defaultTopN}, c.topOpportunities),
		define("search_lead",
			"Search for a specific lead by name and get their details and score.",
			nameParam("Full or partial lead name, case-insensitive"), nameArgs{}, c.searchLead),
		define("followup",
			"Generate personalized follow-up actions for a specific lead by name.",
			nameParam("Full or partial lead name, case-insensitive"), nameArgs{}, c.followUp),
		define("compare",
			"Compare two leads by name and show which one scores higher.",
			[]Param{
				{Name: "name1", Type: "string", Description: "First lead name", Required: true},
				{Name: "name2", Type: "string", Description: "Second lead name", Required: true},
			}, compareArgs{}, c.compare),
		define("pipeline_summary",
			"Get a quick pipeline summary with key metrics.",
			nil, noArgs{}, c.pipelineSummary),
		define("opportunity_detail",
			"Get a comprehensive summary and analysis for a specific opportunity by name.",
			nameParam("Full or partial opportunity name, case-insensitive"), nameArgs{}, c.opportunityDetail),
		define("all_opportunities_summary",
			"Get a summary of all opportunities with key metrics and insights.",
			nil, noArgs{}, c.allOpportunitiesSummary),
	)
}

func (c *catalogue) rank(ctx context.Context, kind scoring.Kind) (scoring.Ranking, error) {
	ranking, err := c.Ranker.Rank(ctx, c.Store, kind)
	if err != nil {
		return nil, failf("Could not load %s: %v", kind.Plural, err)
	}
	return ranking, nil
}

func (c *catalogue) topLeads(ctx context.Context, args topArgs) (string, error) {
	ranking, err := c.rank(ctx, scoring.Lead)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Top %d Leads:\n", args.N)
	for i, lead := range ranking.Top(args.N) {
		fmt.Fprintf(&b, "%d. %s (%s) - Score: %d\n", i+1, lead.Name(), lead.Record.String("Company"), lead.Score)
	}
	return b.String(), nil
}

func (c *catalogue) topOpportunities(ctx context.Context, args topArgs) (string, error) {
	ranking, err := c.rank(ctx, scoring.Opportunity)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Top %d Opportunities:\n", args.N)
	for i, opp := range ranking.Top(args.N) {
		amount, _ := opp.Record.Float("Amount")
		fmt.Fprintf(&b, "%d. %s - %s - Score: %d\n", i+1, opp.Name(), money(amount), opp.Score)
	}
	return b.String(), nil
}

type leadDetail struct {
	Name    string `json:"Name"`
	Company string `json:"Company"`
	Email   string `json:"Email"`
	Status  string `json:"Status"`
	Score   int    `json:"Score"`
}

func (c *catalogue) searchLead(ctx context.Context, args nameArgs) (string, error) {
	ranking, err := c.rank(ctx, scoring.Lead)
	if err != nil {
		return "", err
	}

	lead, _, found := ranking.FindByName(args.Name)
	if !found {
		return fmt.Sprintf("Lead '%s' not found", args.Name), nil
	}

	detail, err := json.MarshalIndent(leadDetail{
		Name:    lead.Name(),
		Company: lead.Record.String("Company"),
		Email:   lead.Record.StringOr("Email", "N/A"),
		Status:  lead.Record.StringOr("Status", "N/A"),
		Score:   lead.Score,
	}, "", "  ")
	if err != nil {
		return "", err
	}
	return string(detail), nil
}

func (c *catalogue) followUp(ctx context.Context, args nameArgs) (string, error) {
	ranking, err := c.rank(ctx, scoring.Lead)
	if err != nil {
		return "", err
	}

	lead, _, found := ranking.FindByName(args.Name)
	if !found {
		return fmt.Sprintf("Lead '%s' not found", args.Name), nil
	}
	return c.FollowUp.Generate(ctx, lead.Record, scoring.Lead)
}

func (c *catalogue) compare(ctx context.Context, args compareArgs) (string, error) {
	ranking, err := c.rank(ctx, scoring.Lead)
	if err != nil {
		return "", err
	}

	first, second, ok := matchPair(ranking, args.Name1, args.Name2)
	if !ok {
		return "Could not find both leads for comparison", nil
	}

	// The ranking is already sorted, so position order is score order.
	if second < first {
		first, second = second, first
	}
	a, b := ranking[first], ranking[second]
	return fmt.Sprintf("Comparison:\n1. %s - Score: %d\n2. %s - Score: %d\n", a.Name(), a.Score, b.Name(), b.Score), nil
}

// matchPair finds two distinct records matching name1 and name2, taking the
// highest-ranked name1 match that still leaves a name2 match.
func matchPair(ranking scoring.Ranking, name1, name2 string) (int, int, bool) {
	for i, a := range ranking {
		if !a.Record.NameContains(name1) {
			continue
		}
		for j, b := range ranking {
			if j != i && b.Record.NameContains(name2) {
				return i, j, true
			}
		}
	}
	return -1, -1, false
}

func (c *catalogue) pipelineSummary(ctx context.Context, _ noArgs) (string, error) {
	leads, err := c.rank(ctx, scoring.Lead)
	if err != nil {
		return "", err
	}
	opps, err := c.rank(ctx, scoring.Opportunity)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(`📊 Quick Pipeline Summary:
- Total Leads: %d (Avg Score: %.1f)
- Total Opportunities: %d
- Pipeline Value: %s
- Avg Opportunity Score: %.1f`,
		len(leads), leads.AverageScore(),
		len(opps),
		money(opps.TotalOf("Amount")),
		opps.AverageScore(),
	), nil
}

func (c *catalogue) opportunityDetail(ctx context.Context, args nameArgs) (string, error) {
	ranking, err := c.rank(ctx, scoring.Opportunity)
	if err != nil {
		return "", err
	}

	opp, pos, found := ranking.FindByName(args.Name)
	if !found {
		return fmt.Sprintf("Opportunity '%s' not found", args.Name), nil
	}

	actions, err := c.FollowUp.Generate(ctx, opp.Record, scoring.Opportunity)
	if err != nil {
		return "", err
	}

	amount, _ := opp.Record.Float("Amount")
	return fmt.Sprintf(`📊 COMPREHENSIVE OPPORTUNITY ANALYSIS

🏢 Opportunity: %s
💰 Amount: %s
📈 Stage: %s
📅 Close Date: %s
🎯 AI Conversion Score: %d/100
📊 Probability: %s%%

💡 INSIGHTS:
- Score Ranking: #%d out of %d opportunities
- Risk Level: %s
- Deal Size: %s

📝 RECOMMENDED ACTIONS:
%s
`,
		opp.Name(),
		money(amount),
		opp.Record.StringOr("StageName", "N/A"),
		opp.Record.StringOr("CloseDate", "N/A"),
		opp.Score,
		opp.Record.StringOr("Probability", "N/A"),
		pos+1, len(ranking),
		riskLevel(opp.Score),
		dealSize(amount),
		actions,
	), nil
}

func (c *catalogue) allOpportunitiesSummary(ctx context.Context, _ noArgs) (string, error) {
	ranking, err := c.rank(ctx, scoring.Opportunity)
	if err != nil {
		return "", err
	}

	total := ranking.TotalOf("Amount")
	avgDeal := 0.0
	if len(ranking) > 0 {
		avgDeal = total / float64(len(ranking))
	}

	highValue, hot, attention := 0, 0, 0
	atRisk := 0.0
	var stages []string
	stageCounts := map[string]int{}

	for _, opp := range ranking {
		amount, _ := opp.Record.Float("Amount")
		if amount > 200000 {
			highValue++
		}
		if opp.Score >= 80 {
			hot++
		}
		if opp.Score < 50 {
			attention++
			atRisk += amount
		}
		stage := opp.Record.StringOr("StageName", "Unknown")
		if _, seen := stageCounts[stage]; !seen {
			stages = append(stages, stage)
		}
		stageCounts[stage]++
	}

	var stageLines []string
	for _, stage := range stages {
		stageLines = append(stageLines, fmt.Sprintf("- %s: %d deals", stage, stageCounts[stage]))
	}

	var topLines []string
	for i, opp := range ranking.Top(5) {
		amount, _ := opp.Record.Float("Amount")
		topLines = append(topLines, fmt.Sprintf("%d. %s - %s (Score: %d)", i+1, opp.Name(), money(amount), opp.Score))
	}

	return fmt.Sprintf(`📊 COMPLETE OPPORTUNITY PIPELINE SUMMARY

💰 FINANCIAL OVERVIEW:
- Total Pipeline Value: %s
- Number of Opportunities: %d
- Average Deal Size: %s
- High-Value Deals (>$200K): %d

🎯 CONVERSION ANALYSIS:
- Average AI Score: %.1f/100
- Hot Deals (Score ≥80): %d
- Deals Needing Attention (Score <50): %d

📈 STAGE BREAKDOWN:
%s

🏆 TOP 5 OPPORTUNITIES:
%s

⚠️ PRIORITY ACTIONS:
- Focus on %d hot deals with high conversion probability
- Review %d underperforming opportunities
- Total potential revenue at risk: %s
`,
		money(total), len(ranking), money(avgDeal), highValue,
		ranking.AverageScore(), hot, attention,
		strings.Join(stageLines, "\n"),
		strings.Join(topLines, "\n"),
		hot, attention, money(atRisk),
	), nil
}
