package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"sigs.k8s.io/yaml"

	api "github.com/citecheck/citecheck/api/v1alpha1"
	"github.com/citecheck/citecheck/internal/checker"
)

const (
	jsonFormat = "json"
	yamlFormat = "yaml"
)

// renderSession prints the session outcome: the error banner for failures,
// otherwise the partial, gated or full view. Error and result displays are
// mutually exclusive.
func renderSession(ctx context.Context, rt *Runtime, sess *checker.Session, reveal bool, output string) error {
	if sess.State() == checker.StateFailed {
		return sess.Err()
	}

	payload := sess.Payload()
	if output != "" {
		return printPayload(payload, output)
	}

	switch sess.View() {
	case checker.ViewPartial:
		renderResults(payload)
		fmt.Printf("\n%d more citations available. Upgrade to check them.\n", payload.CitationsRemaining)
		// remember which job an upgrade would re-run
		rt.Store.SetPendingUpgradeJobID(sess.JobID())
		return nil
	case checker.ViewGated:
		fmt.Printf("Results ready: %s\n", summaryLine(payload))
		if !reveal {
			fmt.Println("Re-run with --reveal to see the details.")
			return nil
		}
		sess.Reveal(ctx, "revealed")
		renderResults(payload)
		return nil
	default:
		renderResults(payload)
		return nil
	}
}

func summaryLine(payload *api.ValidationResultPayload) string {
	return fmt.Sprintf("%d valid • %d errors found", payload.PerfectCount(), payload.ErrorCount())
}

func renderResults(payload *api.ValidationResultPayload) {
	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintf(w, "#\tSOURCE TYPE\tSTATUS\n")
	for _, r := range payload.Results {
		status := "perfect"
		if len(r.Errors) > 0 {
			status = fmt.Sprintf("%d issue(s)", len(r.Errors))
		}
		fmt.Fprintf(w, "%d\t%s\t%s\n", r.CitationNumber, r.SourceType, status)
		for _, e := range r.Errors {
			fmt.Fprintf(w, "\t- %s\t%s\n", e.Component, e.Problem)
			if e.Correction != "" {
				fmt.Fprintf(w, "\t  suggestion\t%s\n", e.Correction)
			}
		}
	}
	fmt.Fprintf(w, "\n%s\n", summaryLine(payload))
}

func printPayload(payload *api.ValidationResultPayload, output string) error {
	switch output {
	case jsonFormat:
		marshalled, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(marshalled))
	case yamlFormat:
		marshalled, err := yaml.Marshal(payload)
		if err != nil {
			return err
		}
		fmt.Println(string(marshalled))
	default:
		return fmt.Errorf("unknown output format %s", output)
	}
	return nil
}

// readCitations resolves the citations argument: "-" reads stdin so shell
// pipelines can feed a bibliography in.
func readCitations(arg string) (string, error) {
	if arg != "-" {
		return arg, nil
	}
	contents, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("reading citations from stdin: %w", err)
	}
	return string(contents), nil
}
