package handlers

import (
	"fmt"
	"io"
	"os"
	"time"

	"ffnexus/internal/store"

	"github.com/spf13/cobra"
)

// NewExportCmd creates the export command for dumping the message log
func NewExportCmd() *cobra.Command {
	var (
		since  time.Duration
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write logged messages as JSONL",
		Long: `Export writes admitted messages from the message log as newline-delimited
JSON, oldest first. The output can be fed back with 'ffnexus replay' or
'ffnexus keywords learn --file'.

Examples:
  ffnexus export --since 72h > messages.jsonl
  ffnexus export --output messages.jsonl`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			var w io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}

			msgs, err := db.MessagesSince(ctx, time.Now().Add(-since).UnixMilli())
			if err != nil {
				return fmt.Errorf("failed to read message log: %w", err)
			}
			for _, m := range msgs {
				if err := store.WriteJSONL(w, m.Message); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d messages\n", len(msgs))
			return nil
		},
	}

	cmd.Flags().DurationVar(&since, "since", 24*time.Hour, "Export messages logged within this duration")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")

	return cmd
}
