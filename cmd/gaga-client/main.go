package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/binbin1213/GAGA-Client/internal/auth"
	"github.com/binbin1213/GAGA-Client/internal/command"
	"github.com/binbin1213/GAGA-Client/internal/config"
	"github.com/binbin1213/GAGA-Client/internal/download"
	"github.com/binbin1213/GAGA-Client/internal/events"
	"github.com/binbin1213/GAGA-Client/internal/history"
	"github.com/binbin1213/GAGA-Client/internal/license"
	"github.com/binbin1213/GAGA-Client/internal/metrics"
	"github.com/binbin1213/GAGA-Client/internal/model"
	"github.com/binbin1213/GAGA-Client/internal/platform"
	"github.com/binbin1213/GAGA-Client/internal/postprocess"
	"github.com/binbin1213/GAGA-Client/internal/ui"
)

// Version is set during build via -ldflags "-X main.version=X.Y.Z"
var version = "dev"

const (
	AppID   = "cn.binbino.gaga-client"
	AppName = "GAGA Client"
	EnvFile = ".env"
)

func main() {
	env, err := config.LoadEnv(EnvFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load %s: %v\n", EnvFile, err)
		os.Exit(1)
	}

	logger := newLogger(env.LogLevel)
	slog.SetDefault(logger)
	logger.Info("starting", slog.String("app", AppName), slog.String("version", version))

	myApp := app.NewWithID(AppID)
	myApp.Settings().SetTheme(ui.NewCompactTheme())
	myWindow := myApp.NewWindow(fmt.Sprintf("%s v%s", AppName, version))
	myWindow.Resize(fyne.NewSize(ui.WindowWidth, ui.WindowHeight))

	settings := config.NewSettings(myApp)

	dataDir, err := platform.GetAppDataDir(env.DataDir)
	if err != nil {
		logger.Error("cannot resolve data dir", slog.String("error", err.Error()))
		os.Exit(1)
	}

	tools, err := config.LoadTools(env.ToolsFile)
	if err != nil {
		logger.Warn("using default tools", slog.String("error", err.Error()))
	}
	resolver := command.NewResolver(tools)
	for _, tool := range []string{config.ToolDownloader, config.ToolMuxer, config.ToolBurner} {
		if !resolver.Available(tool) {
			logger.Warn("tool not found", slog.String("tool", tool))
		}
	}

	reg := prometheus.NewRegistry()
	metrics.Register(reg)
	if env.MetricsAddr != "" {
		go serveMetrics(env.MetricsAddr, reg, logger)
	}

	licenseClient := license.NewClient(env.APIBaseURL, env.APITimeout, logger)
	validator := auth.NewValidator(auth.NewStore(dataDir), licenseClient, logger)

	var historyStore *history.Store
	db, err := history.OpenDB(dataDir)
	if err != nil {
		logger.Error("history disabled", slog.String("error", err.Error()))
	} else {
		defer db.Close()
		if historyStore, err = history.NewStore(db); err != nil {
			logger.Error("history disabled", slog.String("error", err.Error()))
		}
	}

	bus := events.NewBus(logger)
	dispatcher := command.NewDispatcher(resolver, logger)
	pipeline := postprocess.NewPipeline(dispatcher, bus, postprocessOptions(settings), logger)

	deps := download.Deps{
		Auth:   validator,
		Keys:   licenseClient,
		Runner: dispatcher,
		Post:   pipeline,
		Bus:    bus,
	}
	uiDeps := ui.Deps{Auth: validator, Settings: settings}
	if historyStore != nil {
		deps.History = historyStore
		uiDeps.History = historyStore
	}

	orchestrator := download.New(deps, downloadOptions(settings), logger)
	defer orchestrator.Close()

	uiDeps.Orchestrator = orchestrator
	uiDeps.OnSettingsChanged = func() {
		orchestrator.SetOptions(downloadOptions(settings))
		pipeline.SetOptions(postprocessOptions(settings))
	}
	ui.NewRootUI(myWindow, uiDeps, logger)

	myWindow.ShowAndRun()
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogLevelDebug:
		lvl = slog.LevelDebug
	case config.LogLevelWarn:
		lvl = slog.LevelWarn
	case config.LogLevelError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info("metrics listening", slog.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server stopped", slog.String("error", err.Error()))
	}
}

func downloadOptions(settings *config.Settings) download.Options {
	return download.Options{
		ThreadCount:       settings.GetThreadCount(),
		SubtitleLanguage:  settings.GetSubtitleLanguage(),
		KeepIntermediates: settings.GetKeepIntermediates(),
		LogCapacity:       model.DefaultLogCapacity,
	}
}

func postprocessOptions(settings *config.Settings) postprocess.Options {
	opts := postprocess.DefaultOptions()
	opts.SubtitleLanguages = postprocess.SubtitleLanguagePreference(settings.GetSubtitleLanguage())
	opts.BurnSubtitles = settings.GetBurnSubtitles()
	opts.SubtitleStyle = settings.GetSubtitleStyle()
	opts.KeepIntermediates = settings.GetKeepIntermediates()
	return opts
}
