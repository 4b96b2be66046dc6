package handlers

import (
	"encoding/json"
	"fmt"

	"ffnexus/internal/core"
	"ffnexus/internal/pipeline"
	"ffnexus/internal/store"

	"github.com/spf13/cobra"
)

// replayStats counts replay outcomes.
type replayStats struct {
	Processed int `json:"processed"`
	Noise     int `json:"noise"`
	Admitted  int `json:"admitted"`
	Incidents int `json:"incidents"`
	Alerts    int `json:"alerts"`
	Skipped   int `json:"skipped"`
}

func (s *replayStats) add(res pipeline.Result) {
	s.Processed++
	if res.Noise {
		s.Noise++
	}
	if res.Verdict.Admitted {
		s.Admitted++
	}
	if res.Incident != nil {
		s.Incidents++
		if res.Incident.Decision.Alert {
			s.Alerts++
		}
	}
}

// NewReplayCmd creates the replay command for feeding JSONL exports
func NewReplayCmd() *cobra.Command {
	var (
		messageTime bool
		dryRun      bool
		emit        bool
	)

	cmd := &cobra.Command{
		Use:   "replay <file.jsonl>...",
		Short: "Feed JSONL message records through the pipeline",
		Long: `Replay reads newline-delimited message records and processes them in
order, exactly as live messages would be. Malformed lines are skipped.

With --message-time (the default) incident windows follow each message's
createdAt, so a historical export reproduces the alerts it would have
raised. --dry-run disables alert delivery and the message log.

Examples:
  ffnexus replay messages.jsonl
  cat messages.jsonl | ffnexus replay - --dry-run --emit`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd, args, messageTime, dryRun, emit)
		},
	}

	cmd.Flags().BoolVar(&messageTime, "message-time", true, "Window incidents by message createdAt instead of wall time")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Do not send alerts or log messages")
	cmd.Flags().BoolVar(&emit, "emit", false, "Write one JSON result per message to stdout")

	return cmd
}

func runReplay(cmd *cobra.Command, files []string, messageTime, dryRun, emit bool) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, appOptions{
		alerts:         !dryRun,
		logMessages:    !dryRun,
		useMessageTime: messageTime,
	})
	if err != nil {
		return err
	}
	defer a.Close()

	a.manager.Reload(ctx)

	out := cmd.OutOrStdout()
	enc := json.NewEncoder(out)
	var stats replayStats

	for _, path := range files {
		r, err := stdinOrFile(cmd, path)
		if err != nil {
			return err
		}
		skipped, err := store.ReadJSONL(r, func(msg core.Message) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res := a.pipeline.Process(ctx, msg)
			stats.add(res)
			if emit {
				return enc.Encode(res)
			}
			return nil
		})
		r.Close()
		stats.Skipped += skipped
		if err != nil {
			return fmt.Errorf("replay of %s failed: %w", path, err)
		}
		a.log.Info("Replayed file", "path", path, "processed", stats.Processed, "skipped", skipped)
	}

	if !emit {
		fmt.Fprintf(out, "Processed: %d\n", stats.Processed)
		fmt.Fprintf(out, "Noise:     %d\n", stats.Noise)
		fmt.Fprintf(out, "Admitted:  %d\n", stats.Admitted)
		fmt.Fprintf(out, "Incidents: %d\n", stats.Incidents)
		fmt.Fprintf(out, "Alerts:    %d\n", stats.Alerts)
		fmt.Fprintf(out, "Skipped:   %d\n", stats.Skipped)
	}
	return nil
}
