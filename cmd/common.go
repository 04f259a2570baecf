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
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/valpere/doctran/internal/config"
	"github.com/valpere/doctran/internal/detector"
	"github.com/valpere/doctran/internal/service"
	"github.com/valpere/doctran/internal/store"
	"github.com/valpere/doctran/internal/translator"
	"github.com/valpere/doctran/internal/validator"
)

// buildBackend constructs the configured translation backend. The returned
// close func releases its resources and is never nil.
func buildBackend(ctx context.Context, c *config.Config) (translator.Backend, func() error, error) {
	noop := func() error { return nil }

	switch c.Backend.Name {
	case "deepseek":
		b, err := translator.NewChatBackend(c.Backend, c.Client.ConnectTimeout)
		if err != nil {
			return nil, noop, err
		}
		return b, noop, nil
	case "google":
		b, err := translator.NewGoogleBackend(ctx, c.Backend)
		if err != nil {
			return nil, noop, err
		}
		return b, b.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown backend: %s", c.Backend.Name)
	}
}

// openStore opens the history database, creating its directory. It returns
// nil when the store is disabled.
func openStore(c *config.Config) (*store.Store, error) {
	if c.Store.Disabled {
		return nil, nil
	}
	if dir := filepath.Dir(c.Store.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := store.New(c.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// pipeline is everything a translation run needs, wired from the config.
type pipeline struct {
	svc     *service.Service
	closers []func() error
}

func (p *pipeline) Close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](); err != nil {
			logger.Error(err, "failed to release resource")
		}
	}
}

func buildPipeline(ctx context.Context, c *config.Config, validate bool) (*pipeline, error) {
	p := &pipeline{}

	backend, closeBackend, err := buildBackend(ctx, c)
	if err != nil {
		return nil, err
	}
	p.closers = append(p.closers, closeBackend)

	client := translator.NewClient(backend, c.Client, translator.WithLogger(logger.WithName(backend.Name())))

	db, err := openStore(c)
	if err != nil {
		p.Close()
		return nil, err
	}
	if db != nil {
		p.closers = append(p.closers, db.Close)
	}

	det := detector.New()
	opts := service.Options{
		Backend:     backend.Name(),
		ChunkSize:   c.Dispatch.ChunkSize,
		Concurrency: c.Dispatch.Concurrency,
		Store:       db,
		Detector:    det,
		Log:         logger,
	}
	if validate {
		opts.Checker = validator.NewWithDetector(det)
	}
	p.svc = service.New(client, opts)
	return p, nil
}

// withStore opens the database for the management commands.
func withStore(fn func(db *store.Store) error) error {
	if cfg.Store.Disabled {
		return fmt.Errorf("the store is disabled in the configuration")
	}
	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db)
}
