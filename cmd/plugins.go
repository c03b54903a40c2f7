package cmd

import (
	"fmt"
	"strings"

	"github.com/PolarWolf314/syncany/internal/storage"
	"github.com/PolarWolf314/syncany/internal/ui"

	"github.com/spf13/cobra"
)

var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "List the available storage plugins",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		for _, p := range storage.DefaultRegistry().Plugins() {
			fmt.Fprintf(out, "%s %s\n", ui.Highlight.Sprint(p.ID), p.Name)
			for _, opt := range p.Options {
				var flags []string
				if opt.Required {
					flags = append(flags, "required")
				}
				if opt.Sensitive {
					flags = append(flags, "sensitive")
				}
				if opt.Default != "" {
					flags = append(flags, "default "+opt.Default)
				}
				line := fmt.Sprintf("  -P %s=...  %s", opt.Name, opt.Description)
				if len(flags) > 0 {
					line += " " + ui.Muted.Sprint(strings.Join(flags, ", "))
				}
				fmt.Fprintln(out, line)
			}
		}
		return nil
	},
}
