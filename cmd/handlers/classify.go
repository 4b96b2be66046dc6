package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"ffnexus/internal/pipeline"

	"github.com/spf13/cobra"
)

// NewClassifyCmd creates the classify command for scoring a single text
func NewClassifyCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "classify [text]",
		Short: "Score a message and show its incident type",
		Long: `Classify runs text through normalization, the chatter filter, relevance
scoring and incident classification, then prints the breakdown.

Nothing is recorded: incident windows, the message log and keywords are
left untouched, and no alert is sent.

Examples:
  ffnexus classify "o login não funciona desde ontem, servidor caiu"
  echo "lag absurdo no ranqueado" | ffnexus classify --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if text == "" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
				text = strings.TrimSpace(string(data))
			}
			return runClassify(cmd, text, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")

	return cmd
}

func runClassify(cmd *cobra.Command, text string, asJSON bool) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	a.manager.Reload(ctx)
	res := a.pipeline.Classify(text)

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	printResult(out, res)
	return nil
}

func printResult(w io.Writer, res pipeline.Result) {
	fmt.Fprintf(w, "Normalized: %s\n", res.Normalized)
	if res.Noise {
		fmt.Fprintln(w, "Verdict:    noise (discarded)")
		return
	}

	verdict := "rejected"
	if res.Verdict.Admitted {
		verdict = "admitted"
	}
	fmt.Fprintf(w, "Verdict:    %s (score %d)\n", verdict, res.Verdict.Score)

	if len(res.Breakdown.Factors) > 0 {
		names := make([]string, 0, len(res.Breakdown.Factors))
		for name := range res.Breakdown.Factors {
			names = append(names, name)
		}
		sort.Strings(names)
		parts := make([]string, 0, len(names))
		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%s=%+d", name, res.Breakdown.Factors[name]))
		}
		fmt.Fprintf(w, "Factors:    %s\n", strings.Join(parts, " "))
	}
	if len(res.Breakdown.Keywords) > 0 {
		fmt.Fprintf(w, "Keywords:   %s\n", strings.Join(res.Breakdown.Keywords, ", "))
	}
	if !res.KeywordHit {
		fmt.Fprintln(w, "Keywords:   none matched")
	}
	if res.Incident != nil {
		fmt.Fprintf(w, "Incident:   %s (%s)\n", res.Incident.Type.Key, res.Incident.Type.Label)
	}
}

// stdinOrFile opens path for reading; "-" is stdin.
func stdinOrFile(cmd *cobra.Command, path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return f, nil
}
