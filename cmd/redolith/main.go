// Copyright 2025 BINARY Members
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/B1NARY-GR0UP/redolith"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "redolith",
	Short: "Logical change-data-capture engine for Oracle-family redo logs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cmd.SilenceUsage = true

		config := redolith.DefaultConfig
		if configPath != "" {
			var err error
			if config, err = redolith.LoadConfig(configPath); err != nil {
				return err
			}
		}

		r, err := redolith.Open(config)
		if err != nil {
			return err
		}
		defer r.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return r.Run(ctx)
	},
}

func main() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the JSON source config")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%+v\n", err)
		os.Exit(1)
	}
}
