package main

import (
	"context"
	"fmt"

	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cobra"

	"github.com/MaxDude132/prefetcher/internal/otel"
	"github.com/MaxDude132/prefetcher/planner"
	"github.com/MaxDude132/prefetcher/render"
	"github.com/MaxDude132/prefetcher/shapeconf"
	"github.com/MaxDude132/prefetcher/sqlstore"
)

var (
	dbPath       string
	otelEndpoint string
	otelService  string
)

func init() {
	fetchCmd.Flags().StringVarP(&dbPath, "db", "d", "data.db", "Path to the SQLite database")
	fetchCmd.Flags().StringVar(&otelEndpoint, "otel-endpoint", "", "OTLP collector endpoint")
	fetchCmd.Flags().StringVar(&otelService, "otel-service", "prefetcher", "OpenTelemetry service name")
}

var fetchCmd = &cobra.Command{
	Use:   "fetch <shape>",
	Short: "Plan, fetch and render a shape against a SQLite database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if otelEndpoint != "" {
			shutdown, err := otel.Setup(otelEndpoint, otelService)
			if err != nil {
				return fmt.Errorf("otel setup: %w", err)
			}
			defer func() { _ = shutdown(context.Background()) }() // safe to ignore
		}

		cfg, err := shapeconf.Load(configPath)
		if err != nil {
			return err
		}
		node, err := cfg.Shape(args[0])
		if err != nil {
			return err
		}
		if node.Model == nil {
			return fmt.Errorf("shape %q declares no model to query", args[0])
		}

		st, err := sqlstore.Open(dbPath)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }() // safe to ignore

		p := planner.New(st, render.New())
		out, err := p.Render(ctx, node, st.Query(node.Model))
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), oj.JSON(out, &oj.Options{Indent: 2, Sort: true}))
		return nil
	},
}
