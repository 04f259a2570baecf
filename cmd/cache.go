/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/spf13/cobra"

	"github.com/valpere/doctran/internal/store"
)

var memoryCmd = &cobra.Command{
	Use:     "cache",
	Aliases: []string{"memory"},
	Short:   "Inspect and prune the translation memory",
	Long: `Whole-document translations are remembered per language pair once a job
finishes with no failed chunks. A later run over the same text and pair is
answered from memory without calling the backend.

An invalidated entry stays in the database for reference but is never served.`,
}

var memoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show remembered documents, most recently used first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(db *store.Store) error {
			entries, err := db.ListMemory(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to read translation memory: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "Translation memory is empty.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tPAIR\tBACKEND\tHITS\tLAST HIT\tSTATE\tDOCUMENT")
			for _, e := range entries {
				state := "active"
				if e.Invalidated {
					state = "invalid"
				}
				fmt.Fprintf(w, "%s\t%s→%s\t%s\t%d\t%s\t%s\t%s\n",
					e.ID, e.SourceLang, e.TargetLang, e.Backend,
					e.UsageCount, humanize.Time(e.LastUsed),
					state, snippet(e.SourceText, 40))
			}
			return w.Flush()
		})
	},
}

var memoryStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarise translation memory size and hits",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(db *store.Store) error {
			stats, err := db.MemoryStats(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to summarise translation memory: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Documents: %d (%d served, %d invalidated)\n",
				stats.TotalEntries, stats.ActiveEntries, stats.InvalidEntries)
			fmt.Fprintf(out, "Hits:      %s\n", humanize.Comma(int64(stats.TotalUsage)))
			return nil
		})
	},
}

var memoryInvalidateCmd = &cobra.Command{
	Use:   "invalidate <id>",
	Short: "Keep an entry but stop answering from it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(db *store.Store) error {
			if err := db.InvalidateMemory(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("cannot invalidate %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s will be translated again on the next run\n", args[0])
			return nil
		})
	},
}

var memoryDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Drop one remembered document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(db *store.Store) error {
			if err := db.DeleteMemory(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("cannot delete %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s removed from translation memory\n", args[0])
			return nil
		})
	},
}

var memoryClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget every remembered document",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(db *store.Store) error {
			n, err := db.ClearMemory(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to clear translation memory: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Forgot %s.\n", english.Plural(int(n), "document", "documents"))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(memoryCmd)
	memoryCmd.AddCommand(memoryListCmd, memoryStatsCmd, memoryInvalidateCmd, memoryDeleteCmd, memoryClearCmd)
}
