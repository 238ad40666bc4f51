package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapdecide/pkg/dialect"
)

// exampleWindowColumn is the column shown in the window predicate preview.
const exampleWindowColumn = "event_ts"

type dialectOutput struct {
	Name    string   `json:"name"`
	Aliases []string `json:"aliases"`
	Window  string   `json:"window"`
	Example string   `json:"example"`
}

// NewDialectsCommand creates the dialects command.
func NewDialectsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dialects",
		Short: "List supported SQL dialects",
		Long:  `List the SQL dialects compile can target, their accepted aliases, and the time-window predicate each one renders.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := NewCommandContext(cmd)

			var outs []dialectOutput
			for _, d := range dialect.All() {
				aliases := d.Aliases()
				if aliases == nil {
					aliases = []string{}
				}
				outs = append(outs, dialectOutput{
					Name:    d.Name(),
					Aliases: aliases,
					Window:  d.Style().String(),
					Example: d.WindowPredicate(exampleWindowColumn, cc.Cfg.WindowDays),
				})
			}

			if cc.JSON() {
				return renderJSON(cc.Out, outs)
			}
			rows := make([][]string, 0, len(outs))
			for _, o := range outs {
				rows = append(rows, []string{o.Name, strings.Join(o.Aliases, ", "), o.Example})
			}
			renderTable(cc.Out, "", []string{"Dialect", "Aliases", "Window predicate"}, rows)
			return nil
		},
	}
}
