package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapdecide/internal/state"
	"github.com/leapstack-labs/leapdecide/pkg/dialect"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var (
		modelName string
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "history [id]",
		Short: "Show recorded compilations",
		Long: `List compilations recorded with --record (or record_history: true),
newest first. The global --dialect flag filters by dialect. Pass an id to print that compilation's SQL.`,
		Example: `  # Last 20 compilations
  leapdecide history

  # Only BigQuery compilations of one model
  leapdecide history --model hl7_routing --dialect bigquery

  # Print a recorded query
  leapdecide history 3f6c2a9e-...`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := NewCommandContext(cmd)
			store, err := cc.OpenStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if len(args) == 1 {
				c, err := store.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if cc.JSON() {
					return renderJSON(cc.Out, c)
				}
				_, _ = fmt.Fprintf(cc.Out, "-- %s %s %s (%d days)\n", c.ID, c.ModelName, c.Dialect, c.WindowDays)
				_, _ = fmt.Fprintln(cc.Out, c.SQL)
				return nil
			}

			opts := state.ListOptions{ModelName: modelName, Limit: limit}
			if f := cmd.Flags().Lookup("dialect"); f != nil && f.Changed {
				d, err := dialect.Lookup(cc.Cfg.Dialect)
				if err != nil {
					return err
				}
				opts.Dialect = d.Name()
			}
			list, err := store.List(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if list == nil {
				list = []*state.Compilation{}
			}
			if cc.JSON() {
				return renderJSON(cc.Out, list)
			}
			rows := make([][]string, 0, len(list))
			for _, c := range list {
				rows = append(rows, []string{
					c.ID,
					c.CreatedAt.Local().Format(time.DateTime),
					c.ModelName,
					c.Dialect,
					fmt.Sprint(c.WindowDays),
					fmt.Sprint(c.Canonicalized),
					c.SourceHash[:min(12, len(c.SourceHash))],
				})
			}
			renderTable(cc.Out, "", []string{"ID", "Created", "Model", "Dialect", "Days", "Canonical", "Source"}, rows)
			return nil
		},
	}

	cmd.Flags().StringVar(&modelName, "model", "", "Only show compilations of this model")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of compilations to show")

	return cmd
}
