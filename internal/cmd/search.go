package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sessionvault/sessionvault/internal/search"
	"github.com/sessionvault/sessionvault/internal/session"
)

func init() {
	searchCmd.Flags().StringP("mode", "m", "lexical", "Search mode: lexical, semantic, or hybrid")
	searchCmd.Flags().Float64P("weight", "w", search.DefaultSemanticWeight, "Semantic weight for hybrid mode (0..1)")
	searchCmd.Flags().IntP("limit", "n", search.DefaultLimit, "Maximum results")
	searchCmd.Flags().Bool("json", false, "Print results as JSON")
}

var searchCmd = &cobra.Command{
	Use:   "search QUERY...",
	Short: "Search sessions by text, by meaning, or both",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := requireUser(cmd)
		if err != nil {
			return err
		}

		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.Shutdown()

		mode, _ := cmd.Flags().GetString("mode")
		weight, _ := cmd.Flags().GetFloat64("weight")
		limit, _ := cmd.Flags().GetInt("limit")
		asJSON, _ := cmd.Flags().GetBool("json")
		query := strings.Join(args, " ")

		var results []session.Session
		switch mode {
		case "lexical":
			results, err = a.Search.Sessions(cmd.Context(), user, query, limit)
		case "semantic":
			results, err = a.Search.Semantic(cmd.Context(), user, query, limit)
		case "hybrid":
			results, err = a.Search.Hybrid(cmd.Context(), user, query, limit, weight)
		default:
			return fmt.Errorf("unknown mode %q", mode)
		}
		if err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		}

		if len(results) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no results")
			return nil
		}
		for i, sess := range results {
			title := sess.Title
			if title == "" {
				title = "(untitled)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%2d. %s  %s  [%d messages, %d tokens]\n",
				i+1, sess.ID, title, sess.MessageCount, sess.TotalTokens)
		}
		return nil
	},
}
