package main

import (
	"fmt"

	"ai-salesops-be/pkg/crm"
	"ai-salesops-be/pkg/scoring"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var rankLimit int

var rankCmd = &cobra.Command{
	Use:       "rank leads|opportunities",
	Short:     "Score and rank open records",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"leads", "opportunities"},
	RunE:      runRank,
}

var followUpCmd = &cobra.Command{
	Use:   "followup lead|opportunity <id>",
	Short: "Generate three follow-up actions for one record",
	Args:  cobra.ExactArgs(2),
	RunE:  runFollowUp,
}

func init() {
	rankCmd.Flags().IntVarP(&rankLimit, "limit", "n", 10, "number of records to print")
}

func runRank(cmd *cobra.Command, args []string) error {
	kind, err := scoring.KindByName(args[0])
	if err != nil {
		return err
	}
	core, err := loadCore(cmd)
	if err != nil {
		return err
	}

	ranking, err := core.Scorer.Rank(cmd.Context(), core.Store, kind)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	color.New(color.FgCyan, color.Bold).Fprintf(out, "%d %s, average score %.1f\n\n", len(ranking), kind.Plural, ranking.AverageScore())
	for i, r := range ranking.Top(rankLimit) {
		scoreColor(r.Score).Fprintf(out, "%3d", r.Score)
		fmt.Fprintf(out, "  #%-3d %s  %s\n", i+1, r.Name(), detail(r.Record, kind))
	}
	return nil
}

func runFollowUp(cmd *cobra.Command, args []string) error {
	kind, err := scoring.KindByName(args[0])
	if err != nil {
		return err
	}
	core, err := loadCore(cmd)
	if err != nil {
		return err
	}

	records, err := kind.Load(cmd.Context(), core.Store)
	if err != nil {
		return err
	}
	record, err := crm.FindByID(records, args[1])
	if err != nil {
		return err
	}

	steps, err := core.FollowUp.Generate(cmd.Context(), record, kind)
	if err != nil {
		return err
	}
	color.Yellow("Follow-up for %s", record.Name())
	fmt.Fprintln(cmd.OutOrStdout(), steps)
	return nil
}

func scoreColor(score int) *color.Color {
	switch {
	case score >= 80:
		return color.New(color.FgGreen, color.Bold)
	case score >= 60:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}

func detail(r crm.Record, kind scoring.Kind) string {
	if kind.Name == scoring.Lead.Name {
		return fmt.Sprintf("(%s, %s)", r.StringOr("Company", "-"), r.StringOr("Status", "-"))
	}
	amount, _ := r.Float("Amount")
	return fmt.Sprintf("(%s, $%.0f)", r.StringOr("StageName", "-"), amount)
}
