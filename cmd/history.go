package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/totalaudiopromo/intel-export/internal/model"
	"github.com/totalaudiopromo/intel-export/internal/monitoring"
	"github.com/totalaudiopromo/intel-export/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded export jobs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openHistory(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		kindName, _ := cmd.Flags().GetString("kind")
		limit, _ := cmd.Flags().GetInt("limit")
		since, _ := cmd.Flags().GetDuration("since")
		asJSON, _ := cmd.Flags().GetBool("json")

		filter := store.Filter{Limit: limit}
		if kindName != "" {
			kind, ok := model.ParseKind(kindName)
			if !ok {
				return eris.Errorf("unknown export kind %q", kindName)
			}
			filter.Kind = kind
		}
		if since > 0 {
			filter.Since = time.Now().Add(-since)
		}

		recs, err := st.ListExports(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "history")
		}

		if asJSON {
			if recs == nil {
				recs = []model.JobRecord{}
			}
			return writeJSON(os.Stdout, recs)
		}
		if len(recs) == 0 {
			fmt.Fprintln(os.Stderr, "No exports found.")
			return nil
		}
		formatHistory(os.Stdout, recs)
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <job-id>",
	Short: "Show one recorded export job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openHistory(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		rec, err := st.GetExport(cmd.Context(), args[0])
		if err != nil {
			return eris.Wrap(err, "history show")
		}
		return writeJSON(os.Stdout, rec)
	},
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarise recent export jobs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := openHistory(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		since, _ := cmd.Flags().GetDuration("since")
		hours := int(since.Hours())
		if hours < 1 {
			hours = 1
		}

		snap, err := monitoring.NewCollector(st).Collect(cmd.Context(), hours)
		if err != nil {
			return eris.Wrap(err, "history stats")
		}
		formatHistoryStats(os.Stdout, snap)
		return nil
	},
}

func init() {
	historyCmd.Flags().String("kind", "", "filter by kind (contacts, analytics, search-results, ai-report)")
	historyCmd.Flags().Int("limit", 50, "max number of jobs to display")
	historyCmd.Flags().Duration("since", 0, "only jobs started within this window (e.g. 24h)")
	historyCmd.Flags().Bool("json", false, "print jobs as JSON")

	historyStatsCmd.Flags().Duration("since", 24*time.Hour, "time window for stats (e.g. 24h, 168h)")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyStatsCmd)
	rootCmd.AddCommand(historyCmd)
}

func openHistory(cmd *cobra.Command) (store.Store, error) {
	if err := cfg.Validate("history"); err != nil {
		return nil, err
	}
	st, err := initStore(cmd.Context())
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, eris.New("export history is disabled (store.driver is none)")
	}
	return st, nil
}

// formatHistory writes a tabular list of jobs to out.
func formatHistory(out io.Writer, recs []model.JobRecord) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tKIND\tFORMAT\tSTATUS\tITEMS\tSIZE\tEMAIL\tSTARTED\tDURATION")
	_, _ = fmt.Fprintln(w, "--\t----\t------\t------\t-----\t----\t-----\t-------\t--------")

	for _, r := range recs {
		status := "ok"
		if !r.Success {
			status = "failed"
		}
		size := ""
		if r.Bytes > 0 {
			size = humanize.Bytes(uint64(r.Bytes))
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
			truncateID(r.ID),
			r.Kind,
			r.Format,
			status,
			r.ItemCount,
			size,
			r.Delivery,
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			r.Duration.Round(time.Millisecond),
		)
	}
	_ = w.Flush()
}

// formatHistoryStats writes aggregate stats to out.
func formatHistoryStats(out io.Writer, s *monitoring.MetricsSnapshot) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Window:\t%dh\n", s.LookbackHours)
	_, _ = fmt.Fprintf(w, "Exports:\t%d\n", s.ExportTotal)
	_, _ = fmt.Fprintf(w, "  Succeeded:\t%d\n", s.ExportSucceeded)
	_, _ = fmt.Fprintf(w, "  Failed:\t%d (%.1f%%)\n", s.ExportFailed, s.ExportFailRate*100)

	kinds := make([]string, 0, len(s.ByKind))
	for k := range s.ByKind {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		_, _ = fmt.Fprintf(w, "  %s:\t%d\n", k, s.ByKind[model.Kind(k)])
	}

	_, _ = fmt.Fprintf(w, "Items exported:\t%s\n", humanize.Comma(int64(s.ItemsExported)))
	_, _ = fmt.Fprintf(w, "Items dropped:\t%s\n", humanize.Comma(int64(s.ItemsDropped)))
	_, _ = fmt.Fprintf(w, "Bytes written:\t%s\n", humanize.Bytes(uint64(s.BytesWritten)))
	_, _ = fmt.Fprintf(w, "E-mails sent:\t%d\n", s.DeliverySent)
	_, _ = fmt.Fprintf(w, "E-mails failed:\t%d\n", s.DeliveryFailed)
	if s.AvgDurationMS > 0 {
		_, _ = fmt.Fprintf(w, "Avg duration:\t%dms\n", s.AvgDurationMS)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
