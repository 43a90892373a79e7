package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/markdave123-py/phiscan/internal/config"
	"github.com/markdave123-py/phiscan/internal/core"
	"github.com/markdave123-py/phiscan/internal/core/awsconf"
	"github.com/markdave123-py/phiscan/internal/core/batchjob"
	"github.com/markdave123-py/phiscan/internal/core/detector"
	"github.com/markdave123-py/phiscan/internal/core/docextract"
	"github.com/markdave123-py/phiscan/internal/core/llm"
	objectclient "github.com/markdave123-py/phiscan/internal/core/object-client"
	"github.com/markdave123-py/phiscan/internal/core/report"
	"github.com/markdave123-py/phiscan/internal/core/router"
	"github.com/markdave123-py/phiscan/internal/core/scanner"
	"github.com/markdave123-py/phiscan/internal/core/tiffmeta"
	"github.com/markdave123-py/phiscan/internal/observability"
)

// App holds the wired scanning components shared by the CLI and the server.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Registry *prometheus.Registry
	Metrics  *observability.ScanMetrics

	ObjectClient *objectclient.S3Client
	Scanner      *scanner.EntityScanner
	Router       *router.ObjectRouter
	BatchRouter  *router.ObjectRouter
	Invocations  *batchjob.Handler

	closers []func() error
}

// NewApp builds every component from cfg. The detector is only contacted
// when a scan runs.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	a := &App{Config: cfg, Logger: logger, Registry: prometheus.NewRegistry()}
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	metrics, err := observability.NewScanMetrics("phiscan", a.Registry)
	if err != nil {
		return nil, err
	}
	a.Metrics = metrics

	objClient, err := objectclient.NewS3Client(appCtx, cfg, metrics, logger)
	if err != nil {
		return nil, err
	}
	a.ObjectClient = objClient
	logger.Info("Object client initialized and ready.", "backend", cfg.StorageBackend)

	det, err := a.newDetector(appCtx)
	if err != nil {
		a.Close()
		return nil, err
	}
	logger.Info("Detector initialized and ready.", "detector", cfg.Detector)

	chunkMode, err := scanner.ParseChunkMode(cfg.ChunkMode)
	if err != nil {
		a.Close()
		return nil, err
	}
	policy, err := scanner.ParseFailurePolicy(cfg.OnChunkError)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Scanner = scanner.NewEntityScanner(det, scanner.Options{
		ChunkSize:     cfg.ChunkSize,
		Language:      cfg.Language,
		ChunkMode:     chunkMode,
		FailurePolicy: policy,
	}, metrics, logger)

	tagMode, err := tiffmeta.ParseMode(cfg.TagMode)
	if err != nil {
		a.Close()
		return nil, err
	}
	batchTagMode, err := tiffmeta.ParseMode(cfg.BatchTagMode)
	if err != nil {
		a.Close()
		return nil, err
	}

	var docs core.DocumentExtractor
	if cfg.ScanDocuments {
		docs = docextract.NewDocconvExtractor(cfg.UseReadability, logger)
	}

	opts := router.Options{
		TagMode:          tagMode,
		ScanDocuments:    cfg.ScanDocuments,
		Concurrency:      cfg.Concurrency,
		MaxTagValueBytes: cfg.MaxTagValueBytes,
	}
	a.Router = router.New(objClient, a.Scanner, docs, opts, metrics, logger)

	opts.TagMode = batchTagMode
	a.BatchRouter = router.New(objClient, a.Scanner.WithChunkSize(cfg.BatchChunkSize), docs, opts, metrics, logger)

	redactor, err := a.redactor()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Invocations = batchjob.NewHandler(a.BatchRouter, redactor, logger)

	return a, nil
}

func (a *App) newDetector(ctx context.Context) (core.Detector, error) {
	switch a.Config.Detector {
	case config.DetectorGemini:
		gen, err := llm.NewGeminiLLM(ctx, a.Config.AIAPIKey, a.Config.GenModel)
		if err != nil {
			return nil, fmt.Errorf("couldn't initialize the gemini detector, %w", err)
		}
		a.closers = append(a.closers, gen.Close)
		return detector.NewGemini(gen), nil
	default:
		awsCfg, err := awsconf.LoadAWS(ctx, a.Config)
		if err != nil {
			return nil, fmt.Errorf("couldn't initialize the comprehend detector, %w", err)
		}
		return detector.NewComprehend(awsCfg), nil
	}
}

func (a *App) redactor() (*report.Redactor, error) {
	if a.Config.RedactKey == "" {
		return nil, nil
	}
	return report.NewRedactor([]byte(a.Config.RedactKey))
}

// NewSink builds the report sink chain configured for this run.
func (a *App) NewSink(stdout io.Writer) (core.ReportSink, error) {
	return report.FromConfig(a.Config, a.ObjectClient, stdout, a.Logger)
}

func (a *App) Close() {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	a.closers = nil
	if err := errors.Join(errs...); err != nil {
		a.Logger.Warn("Close failed", "error", err)
	}
}
