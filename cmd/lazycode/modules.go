package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/DeusData/lazycode/internal/amd"
	"github.com/DeusData/lazycode/internal/lazy"
)

func newModulesCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "modules [file]",
		Short: "List the define() calls of a bundle",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.settings()
			if err != nil {
				return err
			}
			src, name, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			mods, err := amd.Extract(src)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			if mods == nil {
				mods = []amd.Module{}
			}
			matcher := lazy.NewInitializerMatcher(cfg.AppName)

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(mods)
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.Style().Format.Footer = text.FormatDefault
			t.AppendHeader(table.Row{"ID", "Imports", "Params", "Define", "Body", "Initializer"})
			for _, m := range mods {
				group := ""
				if match, ok := matcher.Match(m.ID); ok {
					group = match.Matches[1]
				}
				t.AppendRow(table.Row{
					m.ID,
					strings.Join(m.Imports, ", "),
					strings.Join(m.Params, ", "),
					fmt.Sprintf("%d-%d", m.DefineRange.Start, m.DefineRange.End),
					fmt.Sprintf("%d-%d", m.BodyRange.Start, m.BodyRange.End),
					group,
				})
			}
			t.AppendFooter(table.Row{fmt.Sprintf("%d modules", len(mods))})
			t.Render()
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print descriptors as JSON")
	cmd.Flags().String("app", "", "application name for initializer matching")
	return cmd
}
