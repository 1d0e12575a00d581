package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"investor_onboarding/internal/draft"
	"investor_onboarding/internal/model"
)

func draftsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drafts",
		Short: "Inspect or discard staged documents",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "List staged documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			staged := 0
			for _, kind := range model.DocumentOrder {
				e, ok := a.drafts.Load(kind)
				if !ok {
					fmt.Fprintf(out, "  %-16s -\n", kind)
					continue
				}
				staged++
				fmt.Fprintf(out, "  %-16s %s (%d KB, %s)\n", kind, e.FileName, len(e.DataURL)/1024, e.SavedAt.Local().Format(time.DateTime))
			}
			fmt.Fprintf(out, "%d of %d documents staged\n", staged, len(model.DocumentOrder))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Discard every staged document",
		RunE: func(cmd *cobra.Command, args []string) error {
			draft.ClearAll(a.drafts)
			fmt.Fprintln(cmd.OutOrStdout(), "Drafts cleared")
			return nil
		},
	})

	return cmd
}
