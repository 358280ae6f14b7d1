package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/thoas/go-funk"
)

type RecoverOptions struct {
	GlobalOptions

	Reveal bool
	Output string
}

func DefaultRecoverOptions() *RecoverOptions {
	return &RecoverOptions{
		GlobalOptions: DefaultGlobalOptions(),
	}
}

func NewCmdRecover() *cobra.Command {
	o := DefaultRecoverOptions()
	cmd := &cobra.Command{
		Use:   "recover",
		Short: "Resume polling an in-flight validation job.",
		Long:  "Picks up the persisted in-flight job id, if any, and resumes polling. The submitted text is not restored; only the results are.",
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
	return cmd
}

func (o *RecoverOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.BoolVar(&o.Reveal, "reveal", o.Reveal, "Reveal gated results immediately.")
	fs.StringVarP(&o.Output, "output", "o", o.Output, fmt.Sprintf("Output format. One of: (%s).", strings.Join(legalOutputTypes, ", ")))
}

func (o *RecoverOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	if len(o.Output) > 0 && !funk.Contains(legalOutputTypes, o.Output) {
		return fmt.Errorf("output format must be one of %s", strings.Join(legalOutputTypes, ", "))
	}
	return nil
}

func (o *RecoverOptions) Run(ctx context.Context, args []string) error {
	rt, err := o.Runtime()
	if err != nil {
		return fmt.Errorf("initializing client: %w", err)
	}
	defer rt.Close()

	fmt.Println("Recovering validation...")
	sess, found := rt.Service.Recover(ctx)
	if !found {
		fmt.Println("No in-flight validation job.")
		return nil
	}
	return renderSession(ctx, rt, sess, o.Reveal, o.Output)
}
