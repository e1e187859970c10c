/*
 * Copyright 2026 The Hearth Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// hearthd is the background agent that keeps a local view of a smart-home
// hub reconciled: it refreshes entities, surfaces new notifications and
// publishes local machine metrics back to the hub.
package main

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/hearthd/hearth/pkg/agentmetrics"
	"github.com/hearthd/hearth/pkg/config"
	"github.com/hearthd/hearth/pkg/lifecycle"
	"github.com/hearthd/hearth/pkg/logger"
	"github.com/hearthd/hearth/pkg/reconciler"
	"github.com/hearthd/hearth/pkg/version"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "hearthd",
		Short:         "Background agent reconciling a local view of a smart-home hub",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), configPath)
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: user config dir)")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println("hearthd " + version.GetFullVersion())
		},
	})

	return root
}

func run(ctx context.Context, configPath string) error {
	if configPath == "" {
		var err error

		configPath, err = config.DefaultPath()
		if err != nil {
			return err
		}
	}

	cfg := &config.Config{}
	if err := config.LoadAndValidate(ctx, configPath, cfg); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logCfg := cfg.Logging
	if logCfg == nil {
		logCfg = logger.DefaultConfig()
	}

	hearthLogger, err := lifecycle.CreateComponentLogger("hearthd", logCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	hearthLogger.Info().
		Str("version", version.GetFullVersion()).
		Str("config", configPath).
		Msg("Starting hearthd")

	sink := &logSink{log: hearthLogger.WithComponent("view")}
	collector := agentmetrics.NewCollector(hearthLogger.WithComponent("agentmetrics"))

	engine := reconciler.New(cfg, sink, collector, nil, hearthLogger)

	if err := engine.CheckConnection(ctx); err != nil {
		hearthLogger.Warn().Err(err).Msg("Hub connection check failed")
	}

	watcher, err := config.NewWatcher(configPath, func(next *config.Config) {
		if err := engine.UpdateConfig(ctx, next); err != nil {
			hearthLogger.Error().Err(err).Msg("Failed to apply config change")
		}
	}, hearthLogger)
	if err != nil {
		hearthLogger.Warn().Err(err).Msg("Config watching unavailable, restart to apply changes")
	} else {
		watcher.Start(ctx)
		defer watcher.Stop()
	}

	return lifecycle.Run(ctx, engine, hearthLogger)
}
