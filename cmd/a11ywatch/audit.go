package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/hazyhaar/a11ywatch"
	"github.com/hazyhaar/a11ywatch/internal/source"
	"github.com/hazyhaar/a11ywatch/report"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	auditFormat   string
	auditBrowser  bool
	auditSettings string
	auditStore    bool
	auditFail     bool
)

// errViolations makes the process exit non-zero under --fail.
var errViolations = errors.New("violations found")

var auditCmd = &cobra.Command{
	Use:   "audit <url|file>",
	Short: "Audit one page and print the report",
	Long: `Audit a URL or a local HTML file. URLs are fetched over HTTP and, with
--browser, rendered in a headless browser when the markup looks
script-driven. Reports are printed and stored only with --store.`,
	Args: cobra.ExactArgs(1),
	RunE: runAudit,
}

func init() {
	auditCmd.Flags().StringVarP(&auditFormat, "format", "f", "table", "json, markdown or table")
	auditCmd.Flags().BoolVar(&auditBrowser, "browser", false, "Render the page in a headless browser")
	auditCmd.Flags().StringVar(&auditSettings, "settings", "", "Rule settings file (.yaml or .toml)")
	auditCmd.Flags().BoolVar(&auditStore, "store", false, "Keep the report in the audit database")
	auditCmd.Flags().BoolVar(&auditFail, "fail", false, "Exit non-zero when violations are found")
}

func runAudit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if auditSettings != "" {
		cfg.Settings.File = auditSettings
	}
	// Schedules and watchers belong to serve.
	cfg.Pages = nil
	cfg.Settings.Watch = false
	if auditBrowser {
		cfg.Browser.Enabled = true
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	svc, err := a11ywatch.New(ctx, cfg, a11ywatch.WithLogger(slog.Default()))
	if err != nil {
		return err
	}
	defer svc.Close()

	page, err := acquire(ctx, svc, args[0])
	if err != nil {
		return err
	}
	var rep *report.Report
	if auditStore {
		if rep, err = svc.AuditPage(ctx, page); err != nil {
			return err
		}
	} else {
		rep = svc.Evaluate(page)
	}

	if err := printReport(cmd.OutOrStdout(), rep, auditFormat); err != nil {
		return err
	}
	if auditFail && len(rep.Violations()) > 0 {
		return errViolations
	}
	return nil
}

func acquire(ctx context.Context, svc *a11ywatch.Service, target string) (*source.Page, error) {
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		return source.ReadFile(target)
	}
	mode := "auto"
	if auditBrowser {
		mode = "browser"
	}
	spinner, _ := pterm.DefaultSpinner.WithWriter(os.Stderr).Start("Loading " + target)
	page, err := svc.Load(ctx, a11ywatch.AuditRequest{URL: target, Mode: mode})
	if err != nil {
		spinner.Fail(err.Error())
		return nil, err
	}
	spinner.Success(fmt.Sprintf("Loaded %s via %s", page.URL, page.Via))
	return page, nil
}

func printReport(w io.Writer, rep *report.Report, format string) error {
	switch format {
	case "json":
		data, err := report.Marshal(rep)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "markdown", "md":
		md, err := report.Markdown(rep)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, md)
		return err
	case "table":
		return printTable(w, rep)
	}
	return errors.Newf("unknown format %q: want json, markdown or table", format)
}

func printTable(w io.Writer, rep *report.Report) error {
	title := rep.Title
	if title == "" {
		title = rep.URL
	}
	pterm.DefaultSection.WithWriter(w).Println(title)

	violations := rep.Violations()
	if len(violations) == 0 {
		pterm.Success.WithWriter(w).Printf("No violations in %d elements\n", rep.Stats.Elements)
		return nil
	}

	data := pterm.TableData{{"Type", "Rule", "Element", "Message"}}
	for _, v := range violations {
		data = append(data, []string{
			string(v.Result.Type),
			v.Result.RuleName,
			v.XPath,
			report.Message(v.Result),
		})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithWriter(w).WithData(data).Render(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	pterm.Info.WithWriter(w).Printf("%d errors, %d warnings, %d elements, %dms\n",
		rep.Stats.Errors, rep.Stats.Warnings, rep.Stats.Elements, rep.Stats.DurationMS)
	if len(rep.Failures) > 0 {
		pterm.Warning.WithWriter(w).Println(strconv.Itoa(len(rep.Failures)) + " rule failures, see --format json")
	}
	return nil
}
