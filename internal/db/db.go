// Package db opens the configured storage backend and hands out the
// domain repositories it implements.
package db

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"librarycat/internal/adapter/cache"
	"librarycat/internal/adapter/memory"
	"librarycat/internal/adapter/postgres"
	"librarycat/internal/adapter/sqlite"
	"librarycat/internal/domain"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Options selects and configures a backend.
type Options struct {
	Driver string
	// DSN is a file path for sqlite and a connection string for postgres.
	DSN string
	// CacheSessions enables the in-process session cache.
	CacheSessions bool
	// CacheLifeWindow caps how long a cached session is trusted.
	CacheLifeWindow time.Duration
}

// SingleInstance reports whether driver keeps its data inside one process
// (or one local file), so a per-process session cache cannot go stale
// behind another instance's back.
func SingleInstance(driver string) bool {
	return driver != DriverPostgres
}

// Store bundles the repositories of one backend.
type Store struct {
	Users    domain.UserRepository
	Sessions domain.SessionRepository
	Books    domain.BookRepository

	closers []io.Closer
}

// Open opens the backend named by opts.Driver. An empty driver means sqlite.
func Open(ctx context.Context, opts Options) (*Store, error) {
	var s *Store
	switch opts.Driver {
	case "", DriverSQLite:
		if opts.DSN == "" {
			return nil, errors.New("sqlite: database path is required")
		}
		d, err := sqlite.Open(ctx, opts.DSN)
		if err != nil {
			return nil, err
		}
		s = &Store{Users: d, Sessions: sqlite.NewSessionRepo(d), Books: d, closers: []io.Closer{d}}
	case DriverPostgres:
		if opts.DSN == "" {
			return nil, errors.New("postgres: DATABASE_URL is required")
		}
		d, err := postgres.Open(ctx, opts.DSN)
		if err != nil {
			return nil, err
		}
		s = &Store{Users: d, Sessions: postgres.NewSessionRepo(d), Books: d, closers: []io.Closer{d}}
	case DriverMemory:
		d := memory.New()
		s = &Store{Users: d, Sessions: d.NewSessionRepo(), Books: d, closers: []io.Closer{d}}
	default:
		return nil, fmt.Errorf("unknown db driver %q", opts.Driver)
	}

	if opts.CacheSessions {
		c, err := cache.NewSessionCache(s.Sessions, opts.CacheLifeWindow)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		s.Sessions = c
		s.closers = append(s.closers, c)
	}
	return s, nil
}

// Close releases every resource held by the store.
func (s *Store) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
