package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

type LoginOptions struct {
	GlobalOptions
}

func DefaultLoginOptions() *LoginOptions {
	return &LoginOptions{
		GlobalOptions: DefaultGlobalOptions(),
	}
}

func NewCmdLogin() *cobra.Command {
	o := DefaultLoginOptions()
	cmd := &cobra.Command{
		Use:   "login TOKEN",
		Short: "Persist an account token for later requests.",
		Args:  cobra.ExactArgs(1),
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
	return cmd
}

func (o *LoginOptions) Run(ctx context.Context, args []string) error {
	rt, err := o.Runtime()
	if err != nil {
		return fmt.Errorf("initializing client: %w", err)
	}
	defer rt.Close()

	rt.Store.SetAuthToken(args[0])
	fmt.Println("Token saved.")
	return nil
}
