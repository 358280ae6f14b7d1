package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

type CreditsOptions struct {
	GlobalOptions

	Token string
}

func DefaultCreditsOptions() *CreditsOptions {
	return &CreditsOptions{
		GlobalOptions: DefaultGlobalOptions(),
	}
}

func NewCmdCredits() *cobra.Command {
	o := DefaultCreditsOptions()
	cmd := &cobra.Command{
		Use:   "credits",
		Short: "Display the credit balance for the current account.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(args); err != nil {
				return err
			}
			return o.Run(cmd.Context(), args)
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	cmd.Flags().StringVar(&o.Token, "token", o.Token, "Account token. Defaults to the persisted one.")
	return cmd
}

func (o *CreditsOptions) Run(ctx context.Context, args []string) error {
	rt, err := o.Runtime()
	if err != nil {
		return fmt.Errorf("initializing client: %w", err)
	}
	defer rt.Close()

	token := o.Token
	if token == "" {
		token = rt.Store.AuthToken()
	}
	if token == "" {
		return fmt.Errorf("no account token: log in first or pass --token")
	}

	credits, err := rt.Validator.GetCredits(ctx, token)
	if err != nil {
		return err
	}

	fmt.Printf("Credits: %d\n", credits.Credits)
	if credits.ActivePass {
		fmt.Println("Active pass: yes")
	}
	return nil
}
