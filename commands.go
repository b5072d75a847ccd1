package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/pflag"

	"maskbrowser/backend/config"
	"maskbrowser/backend/service/shared"
	"maskbrowser/backend/service/sysproxy"
)

// writeConfig regenerates the default config file.
func writeConfig(args []string, stdout io.Writer) error {
	fs := pflag.NewFlagSet("write-config", pflag.ContinueOnError)
	path := fs.String("path", config.DefaultConfigPath, "destination file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := config.WriteDefault(*path, appVersion, appCreator); err != nil {
		return fmt.Errorf("write config %s: %w", *path, err)
	}
	fmt.Fprintf(stdout, "wrote %s\n", *path)
	return nil
}

// restoreProxy replays the crash journal without starting a session.
func restoreProxy(args []string, stderr io.Writer) int {
	fs := pflag.NewFlagSet("restore-proxy", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	timeout := fs.Duration("timeout", 30*time.Second, "restore timeout")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	logger := slog.New(slog.NewTextHandler(stderr, nil))
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	recovered, err := sysproxy.Recovery{
		Controller:  sysproxy.New(logger),
		Journal:     sysproxy.NewJournal(shared.ProxyJournalPath()),
		WarningPath: shared.RestoreWarningPath(),
		Logger:      logger,
	}.Run(ctx)
	if err != nil {
		logger.Error("restore failed", "error", err)
		return 1
	}
	if recovered {
		logger.Info("system proxy restored")
	} else {
		logger.Info("nothing to restore")
	}
	return 0
}
