package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/pflag"

	"maskbrowser/backend/config"
	"maskbrowser/backend/domain"
	"maskbrowser/backend/events"
	"maskbrowser/backend/service/applog"
	"maskbrowser/backend/service/gateway"
	"maskbrowser/backend/service/mask"
	"maskbrowser/backend/service/session"
	"maskbrowser/backend/service/shared"
	"maskbrowser/backend/service/sysproxy"
)

const (
	appVersion = "1.0.0a"
	appCreator = "maskbrowser"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	// 子命令
	if len(args) > 0 {
		switch args[0] {
		case "write-config":
			if err := writeConfig(args[1:], stdout); err != nil {
				fmt.Fprintln(stderr, err)
				return 1
			}
			return 0
		case "restore-proxy":
			return restoreProxy(args[1:], stderr)
		case "version":
			fmt.Fprintln(stdout, appVersion)
			return 0
		}
	}

	lf, err := parseLaunchFlags(args, stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, err)
		return 1
	}

	logger, logPath, closeLog, err := applog.Setup(applog.Options{Dir: shared.LogDir(), Debug: lf.debug, Stderr: stderr})
	if err != nil {
		fmt.Fprintf(stderr, "file logging disabled: %v\n", err)
	}
	defer closeLog()
	slog.SetDefault(logger)
	if logPath != "" {
		logger.Debug("writing log", "path", logPath)
	}

	ctx, cancel := shutdownContext(context.Background())
	defer cancel()

	ctrl := sysproxy.New(logger)
	journal := sysproxy.NewJournal(shared.ProxyJournalPath())
	recovered, err := sysproxy.Recovery{
		Controller:  ctrl,
		Journal:     journal,
		WarningPath: shared.RestoreWarningPath(),
		Logger:      logger,
	}.Run(ctx)
	switch {
	case errors.Is(err, sysproxy.ErrJournalBusy):
		logger.Error("another session holds the system proxy", "error", err)
		return 1
	case err != nil:
		// The journal is kept; restore-proxy can retry.
		logger.Error("proxy recovery failed", "kind", domain.Kind(err), "error", err)
	case recovered:
		logger.Info("system proxy restored from an interrupted session")
	}

	cfg, err := config.Load(lf.configPath)
	if err != nil {
		logger.Error("startup failed", "kind", domain.Kind(err), "error", err)
		return session.ExitCode(err)
	}

	gwOpts := gateway.Options{
		Timeout:      cfg.Gateway.Timeout,
		MaxRuleBytes: cfg.Gateway.MaxRuleBytes,
		Logger:       logger,
	}
	if lf.timeout > 0 {
		gwOpts.Timeout = lf.timeout
	}

	bus := events.NewBus()
	bus.SubscribeAll(func(e events.Event) {
		logger.Debug("event", "type", e.Type(), "event", fmt.Sprintf("%+v", e))
	})

	assets := lf.assets
	if assets == "" {
		assets = shared.ExecutableDir()
	}
	uiPath := lf.uiPath
	if uiPath == "" {
		uiPath = defaultFrontendPath()
	}

	mgr := session.New(session.Options{
		Config:       cfg,
		Overrides:    lf.overrides,
		LocalVersion: appVersion,
		Username:     session.LocalUsername(),
		AssetRoot:    assets,
		Identity:     mask.NewApplier(appVersion, logger),
		Gateways:     session.ClientFactory(gwOpts),
		Proxy:        ctrl,
		Journal:      journal,
		WarningPath:  shared.RestoreWarningPath(),
		UI: session.ExecUI{
			Path:        uiPath,
			SessionFile: shared.SessionFilePath,
			Stdout:      stdout,
			Stderr:      stderr,
			Logger:      logger,
		},
		Contingency: session.NoticeRunner{Out: stderr, Logger: logger},
		Events:      bus,
		Logger:      logger,
	})

	_, err = mgr.Run(ctx)
	code := session.ExitCode(err)
	logger.Info("launcher exit", "state", mgr.State(), "code", code)
	return code
}

type launchFlags struct {
	configPath string
	assets     string
	uiPath     string
	timeout    time.Duration
	debug      bool
	overrides  config.Overrides
}

// parseLaunchFlags maps the command line to overrides. A flag that was not
// given stays nil so the persisted default applies.
func parseLaunchFlags(args []string, stderr io.Writer) (launchFlags, error) {
	fs := pflag.NewFlagSet("maskbrowser", pflag.ContinueOnError)
	fs.SetOutput(stderr)

	var lf launchFlags
	fs.StringVarP(&lf.configPath, "config", "c", config.DefaultConfigPath, "config file")
	fs.StringVar(&lf.assets, "assets", "", "asset root holding icons/ (default: executable directory)")
	fs.StringVar(&lf.uiPath, "ui", "", "frontend executable")
	fs.DurationVar(&lf.timeout, "timeout", 0, "gateway request timeout")

	maskName := fs.StringP("mask", "m", "", "mask to display")
	title := fs.String("title", "", "window title override")
	theme := fs.String("theme", "", "ui theme")
	api := fs.String("api", "", "gateway base URL")
	proxy := fs.String("proxy", "", "proxy address used instead of asking the gateway")
	connect := fs.Bool("connect", true, "contact the gateway")
	adblock := fs.Bool("adblock", true, "load ad-block rules")
	debug := fs.Bool("debug", false, "verbose console logging")
	extra := fs.StringArray("flag", nil, "extra frontend flag (repeatable)")

	if err := fs.Parse(args); err != nil {
		return lf, err
	}
	if fs.NArg() > 0 {
		return lf, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}

	ov := &lf.overrides
	if fs.Changed("mask") {
		ov.Mask = maskName
	}
	if fs.Changed("title") {
		ov.Title = title
	}
	if fs.Changed("theme") {
		ov.Theme = theme
	}
	if fs.Changed("api") {
		ov.API = api
	}
	if fs.Changed("proxy") {
		ov.Proxy = proxy
	}
	if fs.Changed("connect") {
		ov.Connect = connect
	}
	if fs.Changed("adblock") {
		ov.Adblock = adblock
	}
	if fs.Changed("debug") {
		ov.Debug = debug
		lf.debug = *debug
	}
	if fs.Changed("flag") {
		ov.ExtraFlags = append([]string{}, (*extra)...)
	}
	return lf, nil
}

func defaultFrontendPath() string {
	name := "maskbrowser-ui"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(shared.ExecutableDir(), name)
}
