package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hb-chen/skillrt/internal/config"
	"github.com/hb-chen/skillrt/internal/skill"
)

// skillsCmd represents the skills command
var skillsCmd = &cobra.Command{
	Use:   "skills",
	Short: "List registered skills",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		registry, err := initRegistry(cfg)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("%d skill(s)", registry.Count())))
		for s := range registry.All() {
			flags := ""
			if s.RequiresConfirmation {
				flags = " " + warnStyle.Render("[confirm]")
			}
			if s.Timeout > 0 {
				flags += " " + scoreStyle.Render("timeout="+s.Timeout.String())
			}
			fmt.Fprintf(out, "\n%s%s %s\n", nameStyle.Render(s.Name), flags, dimStyle.Render(s.Source))
			if s.Description != "" {
				fmt.Fprintf(out, "  %s\n", s.Description)
			}
			fmt.Fprintf(out, "  %s\n", dimStyle.Render(strings.Join(s.Triggers, " | ")))
		}
		return nil
	},
}

// skillsShowCmd prints one scripted skill straight from its SKILL.md
var skillsShowCmd = &cobra.Command{
	Use:   "show <dir>",
	Short: "Show a scripted skill's manifest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return showSkill(cfg, args[0], cmd.OutOrStdout())
	},
}

func init() {
	skillsCmd.AddCommand(skillsShowCmd)
	rootCmd.AddCommand(skillsCmd)
}

func showSkill(cfg *config.Config, dir string, out io.Writer) error {
	m, err := skill.NewLoader(cfg.Skills.Dir).LoadSkill(dir)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, nameStyle.Render(m.Name))
	if m.Description != "" {
		fmt.Fprintf(out, "  %s\n", m.Description)
	}
	for _, trigger := range m.Triggers {
		if _, err := skill.CompilePattern(trigger); err != nil {
			fmt.Fprintf(out, "  trigger: %s %s\n", trigger, errStyle.Render(err.Error()))
			continue
		}
		fmt.Fprintf(out, "  trigger: %s\n", trigger)
	}
	if m.RequiresConfirmation {
		prompt := m.ConfirmPrompt
		if prompt == "" {
			prompt = cfg.Dispatch.Messages.Confirm
		}
		fmt.Fprintf(out, "  %s %s\n", warnStyle.Render("confirm:"), prompt)
	}
	if m.Timeout > 0 {
		fmt.Fprintf(out, "  timeout: %s\n", m.Timeout)
	}

	script := m.ScriptPath()
	status := okStyle.Render("ok")
	if _, err := os.Stat(script); errors.Is(err, os.ErrNotExist) {
		status = errStyle.Render("missing")
	}
	fmt.Fprintf(out, "  script: %s %s\n", script, status)

	if body := strings.TrimSpace(m.Instructions); body != "" {
		fmt.Fprintf(out, "\n%s\n", dimStyle.Render(body))
	}
	return nil
}
