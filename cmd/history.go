package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hb-chen/skillrt/internal/storage"
)

var (
	historySince int64
	historyJSON  bool
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print the interaction log",
	Example: `  skillrt history
  skillrt history --since 120 --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(store *storage.SQLiteStore) error {
			out := cmd.OutOrStdout()
			enc := json.NewEncoder(out)

			for e, err := range store.ReadLog(cmd.Context(), historySince) {
				if err != nil {
					return err
				}
				if historyJSON {
					if err := enc.Encode(e); err != nil {
						return err
					}
					continue
				}

				skillName := e.Skill
				if skillName == "" {
					skillName = "-"
				}
				fmt.Fprintf(out, "%s %s %s %s %q\n",
					dimStyle.Render(fmt.Sprintf("#%d", e.Seq)),
					scoreStyle.Render(e.At.Local().Format(time.DateTime)),
					outcomeStyle(e.Outcome).Render(string(e.Outcome)),
					nameStyle.Render(skillName),
					e.Command)
				fmt.Fprintf(out, "    %s\n", e.Response)
			}
			return nil
		})
	},
}

func init() {
	historyCmd.Flags().Int64Var(&historySince, "since", 0, "only entries with a sequence number greater than this")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "print one JSON object per entry")

	rootCmd.AddCommand(historyCmd)
}
