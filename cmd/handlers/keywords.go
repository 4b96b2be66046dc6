package handlers

import (
	"fmt"
	"time"

	"ffnexus/internal/core"
	"ffnexus/internal/keywords"
	"ffnexus/internal/store"

	"github.com/spf13/cobra"
)

// NewKeywordsCmd creates the keywords command group
func NewKeywordsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keywords",
		Short: "Inspect and maintain the keyword set",
		Long: `Keywords are stored in the configured backend (keywords.backend: sql,
mcp or memory). When the store is empty or unreadable the built-in
default keywords are used.`,
	}

	cmd.AddCommand(newKeywordsListCmd())
	cmd.AddCommand(newKeywordsAddCmd())
	cmd.AddCommand(newKeywordsLearnCmd())

	return cmd
}

func newKeywordsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the keywords currently in effect",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openKeywordsApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			set := a.manager.Reload(cmd.Context())
			out := cmd.OutOrStdout()
			for _, kw := range set.Items() {
				fmt.Fprintln(out, kw)
			}
			return nil
		},
	}
}

func newKeywordsAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <keyword>...",
		Short: "Add keywords and persist the set",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openKeywordsApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			a.manager.Reload(cmd.Context())
			res := a.manager.Add(cmd.Context(), args...)
			return reportLearn(cmd, res)
		},
	}
}

func newKeywordsLearnCmd() *cobra.Command {
	var (
		since    time.Duration
		fromFile string
	)

	cmd := &cobra.Command{
		Use:   "learn",
		Short: "Learn keywords from logged messages",
		Long: `Learn extracts frequent tokens from admitted messages and merges them
into the keyword set.

By default the batch is every message logged within --since. With
--file the batch is read from a JSONL export instead.

Examples:
  ffnexus keywords learn --since 24h
  ffnexus keywords learn --file export.jsonl`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openKeywordsApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			var texts []string
			if fromFile != "" {
				r, err := stdinOrFile(cmd, fromFile)
				if err != nil {
					return err
				}
				defer r.Close()
				skipped, err := store.ReadJSONL(r, func(m core.Message) error {
					texts = append(texts, m.Content)
					return nil
				})
				if err != nil {
					return err
				}
				if skipped > 0 {
					a.log.Warn("Skipped malformed lines", "count", skipped)
				}
			} else {
				from := time.Now().Add(-since).UnixMilli()
				msgs, err := a.db.MessagesSince(ctx, from)
				if err != nil {
					return fmt.Errorf("failed to read message log: %w", err)
				}
				for _, m := range msgs {
					texts = append(texts, m.Content)
				}
			}

			a.manager.Reload(ctx)
			res := a.manager.Learn(ctx, texts)
			fmt.Fprintf(cmd.OutOrStdout(), "Messages:   %d\n", len(texts))
			if len(res.Candidates) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Candidates: %v\n", res.Candidates)
			}
			return reportLearn(cmd, res)
		},
	}

	cmd.Flags().DurationVar(&since, "since", 24*time.Hour, "Learn from messages logged within this duration")
	cmd.Flags().StringVar(&fromFile, "file", "", "Learn from a JSONL file instead of the message log (- for stdin)")

	return cmd
}

func openKeywordsApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newApp(cmd.Context(), cfg, appOptions{})
}

func reportLearn(cmd *cobra.Command, res keywords.LearnResult) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Added:      %d\n", res.Added)
	fmt.Fprintf(out, "Total:      %d\n", res.Total)
	if !res.Persisted {
		return fmt.Errorf("keyword store unavailable; %d keywords were not saved", res.Added)
	}
	return nil
}
