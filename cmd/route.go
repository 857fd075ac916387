package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hb-chen/skillrt/internal/config"
)

var (
	routeAll      bool
	routeClassify bool
)

// routeCmd represents the route command
var routeCmd = &cobra.Command{
	Use:   "route <text>",
	Short: "Show which skill a command would run",
	Long: `Route text through the skill registry without executing anything.
With --all every matching trigger is listed with its confidence.`,
	Example: `  skillrt route uninstall Zoom
  skillrt route --all "set my language to English"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if !routeClassify {
			cfg.LLM.Enabled = false
		}

		registry, err := initRegistry(cfg)
		if err != nil {
			return err
		}
		r, err := initRouter(cfg, registry)
		if err != nil {
			return err
		}

		text := strings.Join(args, " ")
		out := cmd.OutOrStdout()

		if routeAll {
			candidates := r.Candidates(text)
			if len(candidates) == 0 {
				fmt.Fprintln(out, dimStyle.Render("no trigger matches"))
				return nil
			}
			for _, m := range candidates {
				marker := " "
				if m.Confidence >= r.Threshold() {
					marker = okStyle.Render("✓")
				}
				fmt.Fprintf(out, "%s %s %s %s%s\n", marker,
					nameStyle.Render(m.Skill.Name),
					scoreStyle.Render(fmt.Sprintf("%.2f", m.Confidence)),
					dimStyle.Render(m.Trigger),
					formatParams(m.Params))
			}
			return nil
		}

		m, ok, err := r.Resolve(cmd.Context(), text)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(out, dimStyle.Render("no match"))
			return nil
		}

		via := m.Trigger
		if m.Classified {
			via = "classifier"
		}
		fmt.Fprintf(out, "%s %s %s%s\n",
			nameStyle.Render(m.Skill.Name),
			scoreStyle.Render(fmt.Sprintf("%.2f", m.Confidence)),
			dimStyle.Render(via),
			formatParams(m.Params))
		if m.Skill.RequiresConfirmation {
			fmt.Fprintln(out, warnStyle.Render("requires confirmation"))
		}
		return nil
	},
}

func formatParams(params map[string]string) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%q", k, params[k]))
	}
	return " " + strings.Join(parts, " ")
}

func init() {
	routeCmd.Flags().BoolVar(&routeAll, "all", false, "list every matching trigger")
	routeCmd.Flags().BoolVar(&routeClassify, "classify", false, "consult the LLM classifier when no trigger matches")

	rootCmd.AddCommand(routeCmd)
}
