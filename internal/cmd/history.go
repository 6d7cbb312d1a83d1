package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	kerrors "github.com/felixgeelhaar/wavekeeper/internal/errors"
	"github.com/felixgeelhaar/wavekeeper/internal/journal"
	"github.com/felixgeelhaar/wavekeeper/internal/ledger"
	"github.com/felixgeelhaar/wavekeeper/internal/ux"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse the local run journal",
	}
	cmd.AddCommand(newHistoryListCmd(), newHistoryShowCmd(), newHistoryPruneCmd())
	return cmd
}

// openJournal loads the configuration and returns its journal.
func openJournal(cmd *cobra.Command) (*CommandContext, *journal.Journal, error) {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := cc.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	if !cfg.Journal.Enabled {
		return nil, nil, kerrors.New(kerrors.ErrCodeConfigInvalid, "the run journal is disabled").
			WithSuggestion("Set journal.enabled: true in the configuration")
	}
	return cc, journal.New(cfg.Journal.Dir), nil
}

func newHistoryListCmd() *cobra.Command {
	var (
		limit  int
		kind   string
		format string
	)

	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List recorded runs, newest first",
		Args:    cobra.NoArgs,
		PreRunE: validateFormat,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch ledger.Kind(kind) {
			case "", ledger.KindDaily, ledger.KindStamina, ledger.KindFarm:
			default:
				return &usageError{err: fmt.Errorf("unknown kind %q (supported: daily, stamina, farm)", kind), usage: cmd.UsageString()}
			}

			cc, j, err := openJournal(cmd)
			if err != nil {
				return err
			}
			entries, err := j.List()
			if err != nil {
				return err
			}

			filtered := entries[:0]
			for _, e := range entries {
				if kind != "" && e.Kind != ledger.Kind(kind) {
					continue
				}
				filtered = append(filtered, e)
			}
			if limit > 0 && len(filtered) > limit {
				filtered = filtered[:limit]
			}
			return cc.Render(cmd, format, filtered, entriesView(filtered))
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of entries, 0 for all")
	cmd.Flags().StringVar(&kind, "kind", "", "only show daily, stamina or farm runs")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, json, yaml")
	return cmd
}

// recordView renders a loaded journal record.
type recordView struct {
	*journal.Record
}

func (v recordView) RenderText(s ux.Styles) string {
	if v.Farm != nil {
		return s.Header("Farm iteration "+v.Farm.ID) + "\n" + farmView{v.Farm}.RenderText(s)
	}
	return runView{v.Run}.RenderText(s)
}

func newHistoryShowCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:     "show <id>",
		Short:   "Show one recorded run; a unique id prefix is enough",
		Args:    cobra.ExactArgs(1),
		PreRunE: validateFormat,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, j, err := openJournal(cmd)
			if err != nil {
				return err
			}
			rec, err := j.Load(args[0])
			if err != nil {
				return err
			}
			return cc.Render(cmd, format, rec, recordView{rec})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, json, yaml")
	return cmd
}

func newHistoryPruneCmd() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete records older than a duration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if olderThan <= 0 {
				return &usageError{err: fmt.Errorf("--older-than must be positive"), usage: cmd.UsageString()}
			}
			_, j, err := openJournal(cmd)
			if err != nil {
				return err
			}
			removed, err := j.Prune(time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d record(s)\n", removed)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "age of the records to delete")
	return cmd
}
