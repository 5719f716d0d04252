package main

import (
	"context"
	stderrors "errors"
	"os"

	"github.com/vango-dev/wiretap/internal/config"
	"github.com/vango-dev/wiretap/internal/errors"
	"github.com/vango-dev/wiretap/pkg/store"
)

// loadConfig reads path, which is either a config file or a directory.
// A directory without a config file yields the defaults.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = "."
	}

	var (
		cfg *config.Config
		err error
	)
	if isConfigFile(path) {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load(path)
		var we *errors.WiretapError
		if stderrors.As(err, &we) && we.Code == "W101" {
			cfg, err = config.New(), nil
		}
	}
	if err != nil {
		return nil, err
	}

	cfg.ApplyEnv(os.LookupEnv)
	return cfg, nil
}

// openBackend builds the record backend selected by cfg.
func openBackend(ctx context.Context, cfg *config.Config) (store.Backend, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		return store.NewMemoryBackend(), nil
	case config.BackendFile, "":
		return store.NewFileBackend(cfg.StorePath()), nil
	case config.BackendS3:
		s3cfg := cfg.Store.S3
		client, err := store.NewS3Client(ctx, store.S3Options{
			Region:          s3cfg.Region,
			Endpoint:        s3cfg.Endpoint,
			UsePathStyle:    s3cfg.UsePathStyle,
			AccessKeyID:     s3cfg.AccessKeyID,
			SecretAccessKey: s3cfg.SecretAccessKey,
		})
		if err != nil {
			return nil, errors.New("W121").Wrap(err)
		}
		return store.NewS3Backend(client, s3cfg.Bucket, s3cfg.Key), nil
	default:
		return nil, errors.New("W100").
			WithDetail("Unknown store backend " + cfg.Store.Backend)
	}
}

// openCatalog loads the record catalog selected by cfg.
func openCatalog(ctx context.Context, cfg *config.Config) (*store.Catalog, error) {
	backend, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	catalog, err := store.Open(ctx, backend)
	if err != nil {
		return nil, errors.New("W121").Wrap(err)
	}
	return catalog, nil
}
