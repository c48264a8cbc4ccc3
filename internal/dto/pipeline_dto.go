package dto

import (
	"ai-salesops-be/pkg/crm"
	"time"
)

type RankingQuery struct {
	Limit int `query:"limit" json:"limit" validate:"min=0,max=500"`
}

type ScoredRecordDTO struct {
	Rank   int        `json:"rank"`
	Score  int        `json:"score"`
	Record crm.Record `json:"record"`
}

type RankingResponse struct {
	Kind         string            `json:"kind"`
	Total        int               `json:"total"`
	AverageScore float64           `json:"average_score"`
	Records      []ScoredRecordDTO `json:"records"`
}

type RecordDetailResponse struct {
	Kind string `json:"kind"`
	ScoredRecordDTO
	// Delta is the score relative to the neutral default of 50.
	Delta int `json:"delta"`
	Of    int `json:"of"`
}

type FollowUpRequest struct {
	Kind     string `json:"kind" validate:"required,oneof=lead opportunity"`
	RecordId string `json:"record_id" validate:"required"`
}

type FollowUpResponse struct {
	Kind     string `json:"kind"`
	RecordId string `json:"record_id"`
	Name     string `json:"name"`
	Steps    string `json:"steps"`
}

type HistogramBucket struct {
	From  int `json:"from"`
	To    int `json:"to"`
	Count int `json:"count"`
}

type ScoreBands struct {
	Hot  int `json:"hot"`  // >= 80
	Warm int `json:"warm"` // >= 60
	Cold int `json:"cold"`
}

type DashboardResponse struct {
	TotalLeads              int               `json:"total_leads"`
	AverageLeadScore        float64           `json:"average_lead_score"`
	TotalOpportunities      int               `json:"total_opportunities"`
	AverageOpportunityScore float64           `json:"average_opportunity_score"`
	PipelineValue           float64           `json:"pipeline_value"`
	StageBreakdown          map[string]int    `json:"stage_breakdown"`
	LeadScoreHistogram      []HistogramBucket `json:"lead_score_histogram"`
	LeadBands               ScoreBands        `json:"lead_bands"`
	OpportunityBands        ScoreBands        `json:"opportunity_bands"`
	TopLeads                []ScoredRecordDTO `json:"top_leads"`
	TopOpportunities        []ScoredRecordDTO `json:"top_opportunities"`
}

type RefreshRequest struct {
	Kinds      []string `json:"kinds" validate:"omitempty,dive,oneof=lead opportunity"`
	FlushCache bool     `json:"flush_cache"`
}

type RefreshResponse struct {
	JobId      string    `json:"job_id"`
	Kinds      []string  `json:"kinds"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// RefreshScoresMessage is the payload of a background re-scoring job.
type RefreshScoresMessage struct {
	JobId      string   `json:"job_id"`
	Kinds      []string `json:"kinds"`
	FlushCache bool     `json:"flush_cache"`
}
