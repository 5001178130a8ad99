package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/MaxDude132/prefetcher/planner"
	"github.com/MaxDude132/prefetcher/relpath"
	"github.com/MaxDude132/prefetcher/shapeconf"
)

var explainCmd = &cobra.Command{
	Use:   "explain <shape>",
	Short: "Show the prefetch plan for a shape without touching a database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := shapeconf.Load(configPath)
		if err != nil {
			return err
		}
		node, err := cfg.Shape(args[0])
		if err != nil {
			return err
		}
		plan, err := planner.New(nil, nil).Plan(node)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %s\n\n", color.GreenString("plan"), node.DisplayName())
		fmt.Fprint(out, formatPlan(plan))
		fmt.Fprintf(out, "\n%s, %s\n",
			color.CyanString("%d eager join(s)", len(plan.Eager)),
			color.YellowString("%d batched fetch(es)", len(plan.Batch)))
		return nil
	},
}

// formatPlan renders the plan as a markdown table, one row per
// relation path.
func formatPlan(plan *planner.Plan) string {
	b := &strings.Builder{}

	alignment := make([]tw.Align, 4)
	for i := range alignment {
		alignment[i] = tw.AlignNone
	}
	table := tablewriter.NewTable(b,
		tablewriter.WithRenderer(renderer.NewMarkdown()),
		tablewriter.WithAlignment(alignment),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)
	table.Header([]string{"mode", "through", "stored as", "filtered"})

	for _, r := range plan.Eager {
		table.Append(planRow("eager join", r))
	}
	for _, r := range plan.Batch {
		table.Append(planRow("batched fetch", r))
	}
	table.Render()
	return b.String()
}

func planRow(mode string, r relpath.Rel) []string {
	filtered := ""
	if r.Filter != nil {
		filtered = "yes"
	}
	return []string{mode, r.Through, r.To, filtered}
}
