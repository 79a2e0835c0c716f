package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/vango-dev/uiforge/internal/catalog"
	"github.com/vango-dev/uiforge/internal/config"
	"github.com/vango-dev/uiforge/internal/filestore"
	"github.com/vango-dev/uiforge/internal/refs"
	"github.com/vango-dev/uiforge/internal/scaffold"
	"github.com/vango-dev/uiforge/internal/telemetry"
	"github.com/vango-dev/uiforge/internal/walk"
	"github.com/vango-dev/uiforge/internal/workflow"
)

// env is everything a command needs, built from uiforge.json.
type env struct {
	cfg      *config.Config
	logger   *slog.Logger
	files    *filestore.OS
	catalog  *catalog.Store
	gen      scaffold.Generator
	local    *scaffold.Local
	walker   *walk.Walker
	workflow *workflow.Workflow
	metrics  *telemetry.Metrics
}

type envOptions struct {
	metrics  *telemetry.Metrics
	notifier workflow.Notifier
}

// openEnv loads the configuration from the working directory and opens the
// catalog. Callers must call close.
func openEnv(ctx context.Context, opts envOptions) (*env, error) {
	cfg, err := config.LoadFromWorkingDir()
	if err != nil {
		return nil, err
	}
	logger := newLogger(os.Stderr)

	e := &env{
		cfg:     cfg,
		logger:  logger,
		files:   filestore.NewOS(cfg.Walk.Skip...),
		metrics: opts.metrics,
	}

	var persister catalog.Persister = catalog.NewFilePersisterOn(e.files, cfg.CatalogPath())
	if cfg.Catalog.S3Bucket != "" {
		persister = catalog.NewS3Mirror(persister, newS3Client(cfg), cfg.Catalog.S3Bucket, cfg.Catalog.S3Key,
			logger.With("component", "catalog"))
	}
	e.catalog, err = catalog.Open(ctx, persister,
		catalog.WithDocument(cfg.Catalog.ID, cfg.Catalog.Version),
		catalog.WithComponentsDir(cfg.Paths.Components),
		catalog.WithLogger(logger.With("component", "catalog")),
	)
	if err != nil {
		return nil, err
	}

	e.local = scaffold.NewLocal(e.files, cfg.ComponentsPath(),
		scaffold.WithLogger(logger.With("component", "scaffold")))
	if e.gen, err = newGenerator(cfg, e.local); err != nil {
		return nil, err
	}

	e.walker = walk.New(e.files,
		walk.WithSkip(cfg.Walk.Skip...),
		walk.WithMetrics(opts.metrics),
		walk.WithLogger(logger.With("component", "walk")),
	)

	wfOpts := []workflow.Option{
		workflow.WithLogger(logger.With("component", "workflow")),
		workflow.WithMetrics(opts.metrics),
		workflow.WithSourceRoot(cfg.SourcePath()),
		workflow.WithCanvasDir(cfg.CanvasPath()),
		workflow.WithExtensions(cfg.Walk.Extensions...),
		workflow.WithMutator(refs.NewMutator(refs.WithImportAnchor(cfg.Walk.ImportAnchor))),
	}
	if opts.notifier != nil {
		wfOpts = append(wfOpts, workflow.WithNotifier(opts.notifier))
	}
	e.workflow = workflow.New(e.catalog, e.gen, e.walker, wfOpts...)
	return e, nil
}

// newGenerator picks the scaffold generator for cfg: local unless the remote
// helper is configured.
func newGenerator(cfg *config.Config, local *scaffold.Local) (scaffold.Generator, error) {
	if cfg.Scaffold.Mode != "remote" {
		return local, nil
	}
	timeout, err := cfg.ScaffoldTimeout()
	if err != nil {
		return nil, err
	}
	return scaffold.NewClient(cfg.Scaffold.URL, scaffold.WithTimeout(timeout)), nil
}

func (e *env) close(ctx context.Context) error {
	return e.catalog.Close(ctx)
}

// newS3Client builds the catalog mirror client from the standard AWS
// environment variables.
func newS3Client(cfg *config.Config) *s3.Client {
	region := cfg.Catalog.S3Region
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}
	return s3.New(s3.Options{
		Region: region,
		Credentials: aws.NewCredentialsCache(aws.CredentialsProviderFunc(
			func(context.Context) (aws.Credentials, error) {
				return aws.Credentials{
					AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
					SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
					SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
					Source:          "environment",
				}, nil
			})),
	})
}
