package scoring

import (
	"ai-salesops-be/pkg/crm"
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// RecordPlaceholder is replaced by the canonical JSON form of the record.
const RecordPlaceholder = "{{record}}"

// Kind describes one scorable record type.
type Kind struct {
	Name          string   // "lead", "opportunity"
	Plural        string
	ScoreField    string   // field added to the scored record
	SalientFields []string // fields the prompt asks the model to weigh
	Template      string
	fetch         func(context.Context, crm.RecordStore) ([]crm.Record, error)
}

var Lead = Kind{
	Name:          "lead",
	Plural:        "leads",
	ScoreField:    "priority_score",
	SalientFields: []string{"Rating", "Status", "LeadSource", "Company size indicators"},
	Template: "Analyze this lead and return ONLY a number 0-100:\n" +
		RecordPlaceholder + "\n" +
		"Consider: Rating, Status, LeadSource, Company size indicators.\n" +
		"Score only:",
	fetch: func(ctx context.Context, s crm.RecordStore) ([]crm.Record, error) { return s.GetLeads(ctx) },
}

var Opportunity = Kind{
	Name:          "opportunity",
	Plural:        "opportunities",
	ScoreField:    "conversion_score",
	SalientFields: []string{"Amount", "StageName", "Probability", "CloseDate proximity"},
	Template: "Score this opportunity 0-100 for close likelihood:\n" +
		RecordPlaceholder + "\n" +
		"Consider: Amount, StageName, Probability, CloseDate proximity.\n" +
		"Score only:",
	fetch: func(ctx context.Context, s crm.RecordStore) ([]crm.Record, error) { return s.GetOpportunities(ctx) },
}

// KindByName resolves "lead(s)" and "opportunity/opportunities".
func KindByName(name string) (Kind, error) {
	switch strings.ToLower(name) {
	case "lead", "leads":
		return Lead, nil
	case "opportunity", "opportunities":
		return Opportunity, nil
	}
	return Kind{}, fmt.Errorf("%w: %s", crm.ErrUnknownKind, name)
}

// Load fetches this kind's records from the store.
func (k Kind) Load(ctx context.Context, store crm.RecordStore) ([]crm.Record, error) {
	if k.fetch == nil {
		return nil, fmt.Errorf("%w: %s", crm.ErrUnknownKind, k.Name)
	}
	return k.fetch(ctx, store)
}

// Prompt renders the scoring prompt for one record.
func (k Kind) Prompt(canonical string) string {
	return strings.ReplaceAll(k.Template, RecordPlaceholder, canonical)
}

func (k Kind) WithTemplate(template string) Kind {
	if strings.TrimSpace(template) == "" {
		return k
	}
	k.Template = template
	return k
}

// PromptOverrides is the YAML layout of PROMPTS_FILE.
//
//	lead: |
//	  Rate this lead 0-100: {{record}}
//	opportunity: |
//	  ...
type PromptOverrides struct {
	Lead        string `yaml:"lead"`
	Opportunity string `yaml:"opportunity"`
}

func LoadPromptOverrides(path string) (*PromptOverrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompts file: %w", err)
	}

	var overrides PromptOverrides
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("parse prompts file: %w", err)
	}

	for name, tpl := range map[string]string{"lead": overrides.Lead, "opportunity": overrides.Opportunity} {
		if tpl != "" && !strings.Contains(tpl, RecordPlaceholder) {
			return nil, fmt.Errorf("prompt for %s is missing %s", name, RecordPlaceholder)
		}
	}
	return &overrides, nil
}
