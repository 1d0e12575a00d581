package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"investor_onboarding/internal/draft"
	"investor_onboarding/internal/form"
	"investor_onboarding/internal/messaging"
	"investor_onboarding/internal/validation"
)

func submitCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit [answers.yaml]",
		Short: "Fill in every step from an answers file and send the application",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			answers, err := loadAnswers(a.fs, args[0])
			if err != nil {
				return err
			}

			c := form.NewController(a.drafts, a.cfg.MinInvestment, a.log)
			if err := fill(c, a.fs, answers, true); err != nil {
				printFieldErrors(cmd.OutOrStdout(), err)
				return err
			}

			var notifier form.Notifier
			if a.cfg.NATSURL != "" {
				client, err := messaging.NewNATSClient(a.cfg.NATSURL, a.log)
				if err != nil {
					// Уведомление вторично, заявка уходит и без него
					a.log.Warn("notification channel unavailable", zap.Error(err))
				} else {
					defer client.Close()
					notifier = client
				}
			}

			assembler := form.NewAssembler(form.AssemblerConfig{
				Endpoint:    a.cfg.Endpoint,
				SecretToken: a.cfg.SecretToken,
				Origin:      a.cfg.Origin,
				FormEncoded: a.cfg.FormEncoded,
			}, &http.Client{Timeout: a.cfg.Timeout}, a.drafts, notifier, a.log)

			receipt, err := assembler.Submit(cmd.Context(), c)
			if err != nil {
				printFieldErrors(cmd.OutOrStdout(), err)
				return err
			}

			out := cmd.OutOrStdout()
			if !receipt.Confirmed {
				fmt.Fprintf(out, "Application sent (HTTP %d), the server did not confirm it\n", receipt.Status)
				return nil
			}
			fmt.Fprintf(out, "Application received: %s\n", receipt.SubmissionID)
			return nil
		},
	}
	return cmd
}

func validateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [answers.yaml]",
		Short: "Check an answers file without sending anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			answers, err := loadAnswers(a.fs, args[0])
			if err != nil {
				return err
			}

			// Черновики читаем, но ничего в них не пишем
			scratch := afero.NewCopyOnWriteFs(afero.NewReadOnlyFs(a.fs), afero.NewMemMapFs())
			c := form.NewController(draft.NewFileStore(scratch, a.cfg.DraftDir, a.log), a.cfg.MinInvestment, a.log)
			if err := fill(c, scratch, answers, false); err != nil {
				return err
			}

			p := c.Payload()
			if err := validation.New(validation.ModeServer, a.cfg.MinInvestment).Validate(&p); err != nil {
				printFieldErrors(cmd.OutOrStdout(), err)
				return errors.New("application is incomplete")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Application is complete")
			return nil
		},
	}
}

func printFieldErrors(w io.Writer, err error) {
	var verrs *validation.Errors
	if !errors.As(err, &verrs) {
		return
	}
	for _, fe := range verrs.Fields {
		fmt.Fprintf(w, "  %-24s %s\n", fe.Field+":", fe.Message)
	}
}
