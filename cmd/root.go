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
	"log"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/spf13/cobra"

	"github.com/valpere/doctran/internal/config"
)

var version = "0.3.0"

var (
	cfgFile string
	envFile string

	v      = config.New()
	cfg    *config.Config
	logger = logr.Discard()
)

var rootCmd = &cobra.Command{
	Use:   "doctran",
	Short: "Chunked document translator",
	Long: `A CLI application that translates large documents by splitting them into
chunks, translating the chunks concurrently through a rate-limited backend
and putting the translations back together in the original order.

Supported backends: deepseek (OpenAI-compatible chat API), google

Use "doctran translate --help" for translation options.`,
	Version:      version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(envFile); err != nil {
			return err
		}

		c, err := config.Load(v, cfgFile)
		if err != nil {
			return err
		}
		cfg = c

		if cfg.Verbose {
			stdr.SetVerbosity(1)
		}
		logger = stdr.NewWithOptions(log.New(os.Stderr, "", log.LstdFlags), stdr.Options{LogCaller: stdr.None}).WithName("doctran")
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// bindFlag maps a flag onto a config key so that an explicitly set flag wins
// over the config file and the environment.
func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func bindPersistentFlag(cmd *cobra.Command, key, flag string) {
	if err := v.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ./doctran.yaml or $HOME/.config/doctran/doctran.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log every attempt, retry and split")
	rootCmd.PersistentFlags().String("db", "doctran.db", "Database path for job history and translation memory")
	rootCmd.PersistentFlags().StringP("backend", "b", "deepseek", "Translation backend (deepseek, google)")
	rootCmd.PersistentFlags().String("api-key", "", "Backend API key (default $DEEPSEEK_API_KEY)")
	rootCmd.PersistentFlags().String("model", "", "Chat model name")

	bindPersistentFlag(rootCmd, "verbose", "verbose")
	bindPersistentFlag(rootCmd, "store.path", "db")
	bindPersistentFlag(rootCmd, "backend.name", "backend")
	bindPersistentFlag(rootCmd, "backend.api_key", "api-key")
	bindPersistentFlag(rootCmd, "backend.model", "model")
}
