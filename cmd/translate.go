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
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/valpere/doctran/internal/document"
	"github.com/valpere/doctran/internal/service"
)

var (
	inputFile  string
	inputText  string
	outputFile string
	outDir     string
	sourceLang string
	targetLang string
	noCache    bool
	validate   bool
	quiet      bool
)

var translateCmd = &cobra.Command{
	Use:   "translate",
	Short: "Translate a document or a piece of text",
	Long: `Translate a document by splitting it into chunks and translating the
chunks concurrently.

Input is read from --input (plain text, or Markdown for .md files) or taken
from --text. The translation goes to --output, to translated_<lang><ext> in
--out-dir, or to stdout when neither is given.

Chunks that fail after all retries are replaced with a
[TRANSLATION ERROR: ...] marker; the rest of the document is still written.

Example:
  doctran translate -i book.txt -o book.uk.txt -t uk
  doctran translate --text "Good morning" -t de -s en`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if inputFile == "" && inputText == "" {
			return fmt.Errorf("either --input or --text is required")
		}
		if inputFile != "" && inputText != "" {
			return fmt.Errorf("--input and --text are mutually exclusive")
		}
		if inputFile != "" && outputFile != "" {
			if same, _ := sameFile(inputFile, outputFile); same {
				return fmt.Errorf("input file and output file cannot be the same")
			}
		}

		in := service.Input{
			Text:       inputText,
			SourceLang: sourceLang,
			TargetLang: targetLang,
			NoCache:    noCache,
		}
		if inputFile != "" {
			src, err := document.Open(inputFile)
			if err != nil {
				return err
			}
			in.Source = src
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		p, err := buildPipeline(ctx, cfg, validate)
		if err != nil {
			return err
		}
		defer p.Close()

		out, runErr := p.svc.Translate(ctx, in, progressPrinter())
		if !quiet {
			fmt.Fprintln(os.Stderr)
		}
		if out != nil {
			printSummary(out)
		}
		if runErr != nil {
			if ctx.Err() != nil {
				return errors.New("translation interrupted")
			}
			return fmt.Errorf("translation failed: %w", runErr)
		}

		dest, err := writeOutput(out.Text)
		if err != nil {
			return err
		}
		if dest != "" {
			fmt.Fprintf(os.Stderr, "Written to %s\n", dest)
		}
		if out.Failed > 0 {
			fmt.Fprintf(os.Stderr, "Warning: %d of %d chunks could not be translated and were marked in the output\n", out.Failed, out.Chunks)
		}
		if service.IsFatal(out.Errors) {
			return errors.New("the backend rejected the credentials; check the API key")
		}
		return nil
	},
}

// progressPrinter redraws a single progress line on stderr.
func progressPrinter() func(int) {
	if quiet {
		return nil
	}
	return func(pct int) {
		fmt.Fprintf(os.Stderr, "\rTranslating: %3d%%", pct)
	}
}

func printSummary(out *service.Outcome) {
	if out.Cached {
		fmt.Fprintf(os.Stderr, "Using cached translation (%s → %s)\n", out.SourceLang, targetLang)
		return
	}
	if out.JobResult == nil || out.Chunks == 0 {
		return
	}
	fmt.Fprintf(os.Stderr, "Translated %s characters (%s → %s) in %s chunks, %d failed, %s\n",
		humanize.Comma(int64(out.SourceChars)),
		out.SourceLang, targetLang,
		humanize.Comma(int64(out.Chunks)), out.Failed,
		out.Duration.Round(time.Millisecond))
	fmt.Fprintf(os.Stderr, "Job %s, output %s\n", out.ID, humanize.Bytes(uint64(len(out.Text))))
}

func writeOutput(text string) (string, error) {
	switch {
	case outputFile != "":
		if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
			return "", fmt.Errorf("failed to create output directory: %w", err)
		}
		if err := os.WriteFile(outputFile, []byte(text), 0644); err != nil {
			return "", fmt.Errorf("failed to write output file: %w", err)
		}
		return outputFile, nil
	case outDir != "":
		original := inputFile
		if original == "" {
			original = "text.txt"
		}
		return document.TextRenderer{OutDir: outDir}.Render(text, targetLang, original)
	default:
		if !strings.HasSuffix(text, "\n") {
			text += "\n"
		}
		_, err := os.Stdout.WriteString(text)
		return "", err
	}
}

func sameFile(a, b string) (bool, error) {
	fa, err := os.Stat(a)
	if err != nil {
		return false, err
	}
	fb, err := os.Stat(b)
	if err != nil {
		return false, err
	}
	return os.SameFile(fa, fb), nil
}

func init() {
	rootCmd.AddCommand(translateCmd)

	translateCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Input file to translate")
	translateCmd.Flags().StringVar(&inputText, "text", "", "Text to translate instead of a file")
	translateCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default stdout)")
	translateCmd.Flags().StringVar(&outDir, "out-dir", "", "Write translated_<lang><ext> into this directory")
	translateCmd.Flags().StringVarP(&sourceLang, "source", "s", "auto", "Source language code, or auto to detect it")
	translateCmd.Flags().StringVarP(&targetLang, "target", "t", "", "Target language code (required)")
	translateCmd.Flags().BoolVar(&noCache, "no-cache", false, "Skip the translation memory")
	translateCmd.Flags().BoolVar(&validate, "validate", false, "Log chunks whose translation is not in the target language")
	translateCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not print progress")

	translateCmd.Flags().Int("chunk-size", 1000, "Maximum chunk length in characters")
	translateCmd.Flags().IntP("concurrency", "j", 2, "Number of chunks translated in parallel")
	translateCmd.Flags().Duration("min-interval", 200*time.Millisecond, "Minimum delay between backend requests (0 disables)")
	translateCmd.Flags().Duration("read-timeout", 30*time.Second, "Timeout for a single backend request")
	translateCmd.Flags().Duration("connect-timeout", 3050*time.Millisecond, "Connection timeout")
	translateCmd.Flags().Int("max-attempts", 3, "Attempts per chunk including the first")
	translateCmd.Flags().Bool("protect", false, "Keep code and HTML tags out of the translation")

	bindFlag(translateCmd, "dispatch.chunk_size", "chunk-size")
	bindFlag(translateCmd, "dispatch.concurrency", "concurrency")
	bindFlag(translateCmd, "client.min_interval", "min-interval")
	bindFlag(translateCmd, "client.read_timeout", "read-timeout")
	bindFlag(translateCmd, "client.connect_timeout", "connect-timeout")
	bindFlag(translateCmd, "client.max_attempts", "max-attempts")
	bindFlag(translateCmd, "client.protect", "protect")

	translateCmd.MarkFlagRequired("target")
	translateCmd.MarkFlagsMutuallyExclusive("output", "out-dir")
}
