package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/totalaudiopromo/intel-export/internal/input"
	"github.com/totalaudiopromo/intel-export/internal/model"
)

var batchFlags jobFlags

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Export several data sets from one input file",
	Long:  "Reads a JSON or YAML file with any of contacts, analytics, searchResults and agentReport and exports each non-empty member in that order.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initExportEnv(ctx, "batch", false)
		if err != nil {
			return err
		}
		defer env.Close()

		in, err := input.NewLoader(0).Batch(ctx, batchFlags.input)
		if err != nil {
			return err
		}

		res := env.Service.BatchExport(ctx, in, batchFlags.options(), batchFlags.user, batchFlags.progress(os.Stderr))

		if batchFlags.jsonOut {
			if err := writeJSON(os.Stdout, res); err != nil {
				return err
			}
		} else {
			printBatch(os.Stdout, res)
		}
		if !res.Success {
			return eris.New(res.Message)
		}
		return nil
	},
}

func init() {
	batchFlags.bind(batchCmd)
	rootCmd.AddCommand(batchCmd)
}

// printBatch writes one row per sub-job followed by the batch summary.
func printBatch(out io.Writer, res model.BatchResult) {
	if len(res.Results) > 0 {
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "KIND\tSTATUS\tITEMS\tFILE\tSIZE\tURL")
		_, _ = fmt.Fprintln(w, "----\t------\t-----\t----\t----\t---")
		for _, r := range res.Results {
			status := "ok"
			if !r.Success {
				status = "failed"
			}
			var items, file, size string
			if m := r.Metadata; m != nil {
				items = fmt.Sprintf("%d", m.ExportedCount)
				file = m.Filename
				if m.Bytes > 0 {
					size = humanize.Bytes(uint64(m.Bytes))
				}
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", r.Kind, status, items, file, size, r.DownloadURL)
		}
		_ = w.Flush()

		for _, r := range res.Results {
			if !r.Success {
				_, _ = fmt.Fprintf(out, "%s: %s\n", r.Kind, r.Message)
			}
		}
	}
	_, _ = fmt.Fprintln(out, res.Message)
}
