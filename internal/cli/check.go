package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/thoas/go-funk"

	"github.com/citecheck/citecheck/internal/config"
)

var (
	legalOutputTypes = []string{jsonFormat, yamlFormat}
)

type CheckOptions struct {
	GlobalOptions

	Style  string
	Reveal bool
	Output string
}

func DefaultCheckOptions() *CheckOptions {
	return &CheckOptions{
		GlobalOptions: DefaultGlobalOptions(),
		Style:         config.DefaultStyle,
	}
}

func NewCmdCheck() *cobra.Command {
	o := DefaultCheckOptions()
	cmd := &cobra.Command{
		Use:   "check CITATIONS",
		Short: "Validate citations and wait for the results.",
		Long:  "Submits the given citations (pass \"-\" to read from stdin) for asynchronous validation and polls until the job finishes.",
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

func (o *CheckOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.StringVarP(&o.Style, "style", "s", o.Style, "Citation style to validate against (apa7, mla9).")
	fs.BoolVar(&o.Reveal, "reveal", o.Reveal, "Reveal gated results immediately.")
	fs.StringVarP(&o.Output, "output", "o", o.Output, fmt.Sprintf("Output format. One of: (%s).", strings.Join(legalOutputTypes, ", ")))
}

func (o *CheckOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	if len(o.Output) > 0 && !funk.Contains(legalOutputTypes, o.Output) {
		return fmt.Errorf("output format must be one of %s", strings.Join(legalOutputTypes, ", "))
	}
	return nil
}

func (o *CheckOptions) Run(ctx context.Context, args []string) error {
	citations, err := readCitations(args[0])
	if err != nil {
		return err
	}

	rt, err := o.Runtime()
	if err != nil {
		return fmt.Errorf("initializing client: %w", err)
	}
	defer rt.Close()

	sess := rt.Service.Check(ctx, citations, o.Style)
	return renderSession(ctx, rt, sess, o.Reveal, o.Output)
}
