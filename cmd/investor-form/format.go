package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"investor_onboarding/internal/format"
)

func formatCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "format [phone|id] [value]",
		Short:     "Format a phone number or national ID the way the form does",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"phone", "id"},
		// Конфигурация не нужна
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			var value string
			var err error
			switch args[0] {
			case "phone":
				value = format.Phone(args[1])
				err = format.CheckPhone(value)
			case "id":
				value = format.NationalID(args[1])
				err = format.CheckNationalID(value)
			default:
				return fmt.Errorf("unknown kind %q, expected phone or id", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return err
		},
	}
}
