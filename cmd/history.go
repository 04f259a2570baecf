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
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/valpere/doctran/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect past translation jobs",
}

var historyLimit int

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(db *store.Store) error {
			jobs, err := db.ListJobs(context.Background(), historyLimit)
			if err != nil {
				return fmt.Errorf("failed to list jobs: %w", err)
			}
			if len(jobs) == 0 {
				fmt.Println("No jobs recorded.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tWHEN\tLANGS\tBACKEND\tCHARS\tCHUNKS\tFAILED\tSTATUS\tDURATION")
			for _, j := range jobs {
				fmt.Fprintf(w, "%s\t%s\t%s→%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
					j.ID, humanize.Time(j.CreatedAt), j.SourceLang, j.TargetLang, j.Backend,
					humanize.Comma(int64(j.SourceChars)), j.Chunks, j.FailedChunks,
					j.Status, j.Duration.Round(time.Millisecond))
			}
			return w.Flush()
		})
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a job and its chunks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(db *store.Store) error {
			job, chunks, err := db.GetJob(context.Background(), args[0])
			if errors.Is(err, store.ErrJobNotFound) {
				return fmt.Errorf("no job with id %s", args[0])
			}
			if err != nil {
				return fmt.Errorf("failed to load job: %w", err)
			}

			fmt.Printf("Job:       %s\n", job.ID)
			fmt.Printf("Created:   %s (%s)\n", job.CreatedAt.Format("2006-01-02 15:04:05"), humanize.Time(job.CreatedAt))
			fmt.Printf("Languages: %s → %s\n", job.SourceLang, job.TargetLang)
			fmt.Printf("Backend:   %s\n", job.Backend)
			fmt.Printf("Status:    %s\n", job.Status)
			if job.Error != "" {
				fmt.Printf("Error:     %s\n", job.Error)
			}
			fmt.Printf("Chunks:    %d (%d failed)\n", job.Chunks, job.FailedChunks)
			fmt.Printf("Duration:  %s\n", job.Duration.Round(time.Millisecond))

			if len(chunks) == 0 {
				return nil
			}
			fmt.Println()
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "#\tSOURCE\tRESULT")
			for _, c := range chunks {
				result := c.Translation
				if c.Error != "" {
					result = "ERROR: " + c.Error
				}
				fmt.Fprintf(w, "%d\t%s\t%s\n", c.Index, snippet(c.Source, 40), snippet(result, 60))
			}
			return w.Flush()
		})
	},
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show job history statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(db *store.Store) error {
			stats, err := db.JobStats(context.Background())
			if err != nil {
				return fmt.Errorf("failed to get stats: %w", err)
			}

			fmt.Printf("Jobs:          %d (%d completed, %d failed)\n", stats.Total, stats.Completed, stats.Failed)
			fmt.Printf("Chunks:        %s (%s failed)\n", humanize.Comma(int64(stats.Chunks)), humanize.Comma(int64(stats.FailedChunks)))
			fmt.Printf("Characters:    %s\n", humanize.Comma(int64(stats.SourceChars)))
			fmt.Printf("Avg duration:  %s\n", stats.AvgDuration.Round(time.Millisecond))
			return nil
		})
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a job and its chunks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(db *store.Store) error {
			if err := db.DeleteJob(context.Background(), args[0]); err != nil {
				return fmt.Errorf("failed to delete job: %w", err)
			}
			fmt.Printf("Deleted job: %s\n", args[0])
			return nil
		})
	},
}

// snippet shortens s to n runes on one line.
func snippet(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyListCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of jobs to show")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyStatsCmd)
	historyCmd.AddCommand(historyDeleteCmd)
}
