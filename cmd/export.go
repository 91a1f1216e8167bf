package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/totalaudiopromo/intel-export/internal/export"
	"github.com/totalaudiopromo/intel-export/internal/input"
	"github.com/totalaudiopromo/intel-export/internal/model"
)

// jobFlags are the flags shared by export and batch.
type jobFlags struct {
	input           string
	format          string
	filename        string
	includeMetadata bool
	email           string
	message         string
	user            string
	requireDelivery bool
	company         string
	logo            string
	color           string
	quiet           bool
	jsonOut         bool
}

func (f *jobFlags) bind(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVarP(&f.input, "input", "i", "", "input file or http(s) URL; - reads JSON from stdin")
	fl.StringVarP(&f.format, "format", "f", "csv", "output format: csv, spreadsheet (excel) or document (pdf)")
	fl.StringVar(&f.filename, "filename", "", "output filename (default <product>-<kind>.<ext>)")
	fl.BoolVar(&f.includeMetadata, "include-metadata", false, "add source, tags, notes and priority columns to contact exports")
	fl.StringVar(&f.email, "email", "", "e-mail the download link to this address")
	fl.StringVar(&f.message, "message", "", "custom message for the e-mail")
	fl.StringVar(&f.user, "user", "", "user label recorded with the job")
	fl.BoolVar(&f.requireDelivery, "require-delivery", false, "fail the job when the e-mail cannot be sent")
	fl.StringVar(&f.company, "company", "", "white-label company name")
	fl.StringVar(&f.logo, "logo", "", "white-label logo URL")
	fl.StringVar(&f.color, "color", "", "white-label primary colour (#rrggbb)")
	fl.BoolVarP(&f.quiet, "quiet", "q", false, "do not print progress")
	fl.BoolVar(&f.jsonOut, "json", false, "print the result as JSON")
	_ = cmd.MarkFlagRequired("input")
}

// options converts the flags into per-job options.
func (f *jobFlags) options() model.Options {
	opts := model.Options{
		Format:                      f.format,
		Filename:                    f.filename,
		IncludeMetadata:             f.includeMetadata,
		RecipientEmail:              strings.TrimSpace(f.email),
		EmailDelivery:               strings.TrimSpace(f.email) != "",
		CustomMessage:               f.message,
		RequireDeliveryConfirmation: f.requireDelivery,
	}
	if f.company != "" || f.logo != "" || f.color != "" {
		opts.WhiteLabel = &model.WhiteLabel{CompanyName: f.company, LogoURL: f.logo, PrimaryColor: f.color}
	}
	return opts
}

func (f *jobFlags) progress(w io.Writer) export.ProgressFunc {
	if f.quiet || f.jsonOut {
		return nil
	}
	return progressPrinter(w)
}

var exportFlags jobFlags

var exportCmd = &cobra.Command{
	Use:       "export <contacts|analytics|search-results|ai-report>",
	Short:     "Export one data set",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"contacts", "analytics", "search-results", "ai-report"},
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, ok := model.ParseKind(args[0])
		if !ok {
			return eris.Errorf("unknown export kind %q", args[0])
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initExportEnv(ctx, "export", false)
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := runExport(ctx, env.Service, input.NewLoader(0), kind, exportFlags.input,
			exportFlags.options(), exportFlags.user, exportFlags.progress(os.Stderr))
		if err != nil {
			return err
		}

		if exportFlags.jsonOut {
			if err := writeJSON(os.Stdout, res); err != nil {
				return err
			}
		} else {
			printResult(os.Stdout, res)
		}
		if !res.Success {
			return eris.Wrapf(res.Err, "export %s", kind)
		}
		return nil
	},
}

func init() {
	exportFlags.bind(exportCmd)
	rootCmd.AddCommand(exportCmd)
}

// runExport loads src as the given kind and runs the matching export. Only
// input errors are returned; job failures are reported in the Result.
func runExport(ctx context.Context, svc *export.Service, loader *input.Loader, kind model.Kind, src string, opts model.Options, user string, onProgress export.ProgressFunc) (model.Result, error) {
	switch kind {
	case model.KindContacts:
		contacts, err := loader.Contacts(ctx, src)
		if err != nil {
			return model.Result{}, err
		}
		return svc.ExportContacts(ctx, contacts, opts, user, onProgress), nil
	case model.KindAnalytics:
		snap, err := loader.Analytics(ctx, src)
		if err != nil {
			return model.Result{}, err
		}
		return svc.ExportAnalytics(ctx, snap, opts, user, onProgress), nil
	case model.KindSearchResults:
		set, err := loader.SearchResults(ctx, src)
		if err != nil {
			return model.Result{}, err
		}
		return svc.ExportSearchResults(ctx, set, opts, user, onProgress), nil
	case model.KindAgentReport:
		report, err := loader.AgentReport(ctx, src)
		if err != nil {
			return model.Result{}, err
		}
		return svc.ExportAgentReport(ctx, report, opts, user, onProgress), nil
	}
	return model.Result{}, eris.Errorf("unknown export kind %q", kind)
}

// progressPrinter renders progress events as one line each.
func progressPrinter(w io.Writer) export.ProgressFunc {
	return func(ev model.ProgressEvent) {
		_, _ = fmt.Fprintf(w, "[%3.0f%%] %-10s %s\n", ev.Percentage, ev.Stage, ev.Message)
	}
}

// printResult writes a human summary of one job.
func printResult(w io.Writer, res model.Result) {
	mark := "OK"
	if !res.Success {
		mark = "FAILED"
	}
	_, _ = fmt.Fprintf(w, "%s  %s\n", mark, res.Message)

	m := res.Metadata
	if m == nil || !res.Success {
		return
	}
	size := humanize.Bytes(uint64(m.Bytes))
	if m.Pages > 0 {
		_, _ = fmt.Fprintf(w, "    file: %s (%s, %d pages)\n", m.Filename, size, m.Pages)
	} else {
		_, _ = fmt.Fprintf(w, "    file: %s (%s)\n", m.Filename, size)
	}
	if m.DroppedCount > 0 {
		_, _ = fmt.Fprintf(w, "    dropped: %d record(s)\n", m.DroppedCount)
	}
	if res.DownloadURL != "" {
		_, _ = fmt.Fprintf(w, "    url: %s\n", res.DownloadURL)
	}
	if d := m.Delivery; d != nil {
		if d.Sent {
			_, _ = fmt.Fprintf(w, "    emailed: %s\n", d.Recipient)
		} else {
			_, _ = fmt.Fprintf(w, "    email failed: %s\n", d.Error)
		}
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return eris.Wrap(err, "encode json")
	}
	return nil
}
