package main

import (
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/hazyhaar/a11ywatch"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var rulesSettings string

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List rules with the options they currently run with",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if rulesSettings != "" {
			cfg.Settings.File = rulesSettings
		}
		cfg.Pages = nil
		svc, err := a11ywatch.New(cmd.Context(), cfg, a11ywatch.WithLogger(slog.Default()))
		if err != nil {
			return err
		}
		defer svc.Close()

		data := pterm.TableData{{"Rule", "Enabled", "Params", "Source"}}
		for _, info := range svc.Rules() {
			src := "default"
			if info.Override {
				src = "settings"
			}
			data = append(data, []string{info.Name, strconv.FormatBool(info.Enabled), formatParams(info.Params), src})
		}
		return pterm.DefaultTable.WithHasHeader().WithWriter(cmd.OutOrStdout()).WithData(data).Render()
	},
}

func init() {
	rulesCmd.Flags().StringVar(&rulesSettings, "settings", "", "Rule settings file (.yaml or .toml)")
}

func formatParams(p map[string]string) string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + p[k]
	}
	return strings.Join(parts, " ")
}
