// Package stats implements the statistics subcommand showing the review
// queue and committed label totals.
package stats

import (
	"fmt"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/aerolabel/aerolabel-go/internal/conf"
	"github.com/aerolabel/aerolabel-go/internal/datastore"
	"github.com/aerolabel/aerolabel-go/internal/review"
)

// Command creates the stats subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show review queue and label statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(settings)
		},
	}
}

func runStats(settings *conf.Settings) error {
	ds := datastore.New(settings)
	if err := ds.Open(); err != nil {
		return err
	}
	defer ds.Close()

	triage := review.NewTriage(settings, ds)

	reviewStats, err := triage.Stats()
	if err != nil {
		return err
	}
	labelStats, err := triage.LabelStats()
	if err != nil {
		return err
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle("Review queue")
	tw.AppendHeader(table.Row{"Metric", "Count"})
	tw.AppendRows([]table.Row{
		{"Total predictions", reviewStats.Total},
		{"Pending review", reviewStats.Pending},
		{"New-class candidates", reviewStats.Outliers},
		{"Auto-approvable", reviewStats.AutoApprovable},
	})
	fmt.Println(tw.Render())

	if len(reviewStats.StatusBreakdown) > 0 {
		tw = table.NewWriter()
		tw.SetStyle(table.StyleRounded)
		tw.SetTitle("Labels by review status")
		tw.AppendHeader(table.Row{"Status", "Count"})
		for _, status := range sortedKeys(reviewStats.StatusBreakdown) {
			tw.AppendRow(table.Row{status, reviewStats.StatusBreakdown[status]})
		}
		fmt.Println(tw.Render())
	}

	tw = table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle(fmt.Sprintf("Committed labels (%d)", labelStats.TotalLabeled))
	tw.AppendHeader(table.Row{"Type", "Count"})
	for _, typeID := range sortedKeys(labelStats.ByType) {
		tw.AppendRow(table.Row{typeID, labelStats.ByType[typeID]})
	}
	fmt.Println(tw.Render())

	tw = table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle("Labels by airline")
	tw.AppendHeader(table.Row{"Airline", "Count"})
	for _, airlineID := range sortedKeys(labelStats.ByAirline) {
		tw.AppendRow(table.Row{airlineID, labelStats.ByAirline[airlineID]})
	}
	fmt.Println(tw.Render())

	return nil
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
