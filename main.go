package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/harithra-blueberry/aiprescription/config"
	"github.com/harithra-blueberry/aiprescription/data"
	"github.com/harithra-blueberry/aiprescription/dispatch"
	"github.com/harithra-blueberry/aiprescription/formatter"
	"github.com/harithra-blueberry/aiprescription/handlers"
	"github.com/harithra-blueberry/aiprescription/health"
	"github.com/harithra-blueberry/aiprescription/logging"
	"github.com/harithra-blueberry/aiprescription/medicineparser"
	"github.com/harithra-blueberry/aiprescription/prescription"
	"github.com/harithra-blueberry/aiprescription/renderer"
	"github.com/harithra-blueberry/aiprescription/resolver"
	"github.com/harithra-blueberry/aiprescription/scheduler"
	"github.com/harithra-blueberry/aiprescription/server"
	"github.com/harithra-blueberry/aiprescription/storage"
	"github.com/harithra-blueberry/aiprescription/transcriber"
	"github.com/harithra-blueberry/aiprescription/validation"
)

func main() {
	transcript := flag.String("transcript", "", "print the prescription for this transcript and exit")
	details := flag.String("details", "", "print the catalog details of this medicine and exit")
	envFile := flag.String("env-file", ".env", "environment file to load before reading configuration")
	flag.Parse()

	if err := config.LoadDotEnv(*envFile); err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load environment file:", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load configuration:", err)
		os.Exit(1)
	}

	if *transcript != "" || *details != "" {
		os.Exit(runOnce(cfg, *transcript, *details))
	}

	logging.InitLoggerWithRetentionAndSize("logs", cfg.Env, cfg.LogLevel, cfg.LogRetentionWeeks, cfg.MaxLogFileSize)
	defer logging.Close()

	if err := run(cfg); err != nil {
		logging.Error("Server stopped with error", "error", err)
		logging.Close()
		os.Exit(1)
	}
}

// runOnce loads the catalog, prints one prescription or details block and
// returns the process exit code.
func runOnce(cfg *config.Config, transcript, details string) int {
	logging.InitLoggerWithOptions(logging.Options{Env: cfg.Env, Level: "error"})
	defer logging.Close()

	store := data.NewStore()
	cat, err := medicineparser.NewParser(cfg.CatalogPath).LoadCatalog(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load catalog:", err)
		return 1
	}
	store.UpdateCatalog(cat)

	service, err := newService(cfg, store, prescription.Options{})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if details != "" {
		_, text := service.Details(details)
		fmt.Print(text)
	}
	if transcript != "" {
		fmt.Print(service.Format(service.Process(transcript)))
	}
	return 0
}

func run(cfg *config.Config) error {
	store := data.NewStore()
	store.SetServerStartTime(time.Now())

	sched := scheduler.NewScheduler(store, medicineparser.NewParser(cfg.CatalogPath), cfg.CatalogReloadAt)
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	opts, integrations, err := newIntegrations(cfg)
	if err != nil {
		return err
	}

	service, err := newService(cfg, store, opts)
	if err != nil {
		return err
	}

	checker := health.NewHealthChecker(store, cfg.CatalogReloadAt, integrations)
	validator := validation.NewInputValidator(validation.DefaultMaxTranscriptLength)
	handler := handlers.NewHTTPHandler(service, store, validator, checker, cfg.MaxAudioBytes)
	srv := server.NewServer(cfg, handler)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logging.Info("Received shutdown signal", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

// newService builds the pipeline with the configured matching threshold
// and timing delimiter.
func newService(cfg *config.Config, store *data.Store, opts prescription.Options) (*prescription.Service, error) {
	res, err := resolver.New(resolver.TokenScorer{}, cfg.MatchThreshold)
	if err != nil {
		return nil, fmt.Errorf("invalid match threshold: %w", err)
	}

	opts.Resolver = res
	opts.Formatter = formatter.New(cfg.TimingDelimiter)
	opts.BatchConcurrency = cfg.BatchConcurrency
	opts.MaxBatch = cfg.MaxBatch
	return prescription.NewService(store, opts), nil
}

// newIntegrations creates the optional outbound clients. Integrations that
// are not configured stay nil and their endpoints answer 503.
func newIntegrations(cfg *config.Config) (prescription.Options, map[string]bool, error) {
	opts := prescription.Options{Renderer: renderer.NewPDFRenderer()}
	enabled := map[string]bool{
		"renderer":      true,
		"transcription": cfg.TranscriptionEnabled(),
		"storage":       cfg.StorageEnabled(),
		"delivery":      cfg.DeliveryEnabled(),
	}

	if cfg.TranscriptionEnabled() {
		client, err := transcriber.New(transcriber.Config{
			URL:             cfg.TranscriberURL,
			Timeout:         cfg.TranscriberTimeout,
			MaxCaptureBytes: int(cfg.MaxAudioBytes),
		})
		if err != nil {
			return opts, nil, fmt.Errorf("create transcriber: %w", err)
		}
		opts.Transcriber = client
	}

	if cfg.StorageEnabled() {
		uploader, err := storage.New(storage.Config{
			ConnectionString: cfg.StorageConnectionString,
			Container:        cfg.StorageContainer,
			PublicURL:        cfg.StoragePublicURL,
		})
		if err != nil {
			return opts, nil, fmt.Errorf("create document storage: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := uploader.EnsureContainer(ctx); err != nil {
			return opts, nil, err
		}
		opts.Uploader = uploader
	}

	if cfg.DeliveryEnabled() {
		sender, err := dispatch.New(dispatch.Config{
			AccountSID: cfg.TwilioAccountSID,
			AuthToken:  cfg.TwilioAuthToken,
			From:       cfg.TwilioFrom,
		})
		if err != nil {
			return opts, nil, fmt.Errorf("create message dispatcher: %w", err)
		}
		opts.Dispatcher = sender
	}

	logging.Info("Integrations configured", "integrations", enabled)
	return opts, enabled, nil
}
