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
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/valpere/doctran/internal/store"
)

var glossaryPair string

var glossaryCmd = &cobra.Command{
	Use:   "glossary",
	Short: "Pin how terms are translated",
	Long: `Terms stored for a language pair are sent with every chunk of a job in that
pair, so a name or a piece of domain vocabulary is rendered the same way
across the whole document. Adding a term that already exists for the pair
replaces its translation.

Pairs are written as source:target, for example en:uk.`,
}

var glossaryListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show pinned terms, optionally for one --pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		var src, tgt string
		if glossaryPair != "" {
			var err error
			if src, tgt, err = parsePair(glossaryPair); err != nil {
				return err
			}
		}
		return withStore(func(db *store.Store) error {
			entries, err := db.ListGlossaryTerms(cmd.Context(), src, tgt)
			if err != nil {
				return fmt.Errorf("failed to read glossary: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No pinned terms.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tPAIR\tTERM\tRENDERED AS")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s:%s\t%s\t%s\n", e.ID, e.SourceLang, e.TargetLang, e.SourceTerm, e.TargetTerm)
			}
			return w.Flush()
		})
	},
}

var glossaryAddCmd = &cobra.Command{
	Use:   "add <term> <rendered-as> --pair <src:tgt>",
	Short: "Pin a term for a language pair",
	Example: `  doctran glossary add "rate limiter" "обмежувач частоти" --pair en:uk
  doctran glossary add Kubernetes Kubernetes --pair en:de`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if glossaryPair == "" {
			return fmt.Errorf("--pair is required, e.g. --pair en:uk")
		}
		src, tgt, err := parsePair(glossaryPair)
		if err != nil {
			return err
		}
		return withStore(func(db *store.Store) error {
			id, err := db.AddGlossaryTerm(cmd.Context(), src, tgt, args[0], args[1])
			if err != nil {
				return fmt.Errorf("cannot pin %q: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %q is now rendered as %q for %s:%s\n", id, args[0], args[1], src, tgt)
			return nil
		})
	},
}

var glossaryDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Unpin a term",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(db *store.Store) error {
			if err := db.DeleteGlossaryTerm(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("cannot unpin %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s unpinned\n", args[0])
			return nil
		})
	},
}

// parsePair splits "en:uk" and checks that both halves are language tags.
// The codes are stored as written, the same way translate looks them up.
func parsePair(s string) (string, string, error) {
	src, tgt, ok := strings.Cut(s, ":")
	if !ok || src == "" || tgt == "" {
		return "", "", fmt.Errorf("language pair %q must look like en:uk", s)
	}
	if _, err := language.Parse(src); err != nil {
		return "", "", fmt.Errorf("invalid source language %q: %w", src, err)
	}
	if _, err := language.Parse(tgt); err != nil {
		return "", "", fmt.Errorf("invalid target language %q: %w", tgt, err)
	}
	return src, tgt, nil
}

func init() {
	rootCmd.AddCommand(glossaryCmd)
	glossaryCmd.PersistentFlags().StringVarP(&glossaryPair, "pair", "p", "", "Language pair as source:target")
	glossaryCmd.AddCommand(glossaryListCmd, glossaryAddCmd, glossaryDeleteCmd)
}
