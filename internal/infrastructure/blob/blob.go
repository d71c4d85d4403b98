// Package blob holds the media store backends: S3-compatible, filesystem and in-memory,
// plus a circuit breaker decorator for remote drivers.
package blob

import (
	"context"
	"errors"
	"fmt"

	"club-overview-console/internal/domain"
	"club-overview-console/pkg/circuit"
	"club-overview-console/pkg/config"
	errs "club-overview-console/pkg/errors"
	"club-overview-console/pkg/logging"
)

// Store is a BlobStore that can report reachability to the health checker.
type Store interface {
	domain.BlobStore
	Ping(ctx context.Context) error
}

// Open builds the store selected by cfg.BlobDriver. Remote drivers come wrapped in a breaker.
func Open(ctx context.Context, cfg *config.Config, logger *logging.Logger) (Store, error) {
	switch cfg.BlobDriver {
	case "", "memory":
		return NewMemoryStore(), nil
	case "fs":
		return NewFSStore(cfg.BlobDir, cfg.BlobBaseURL)
	case "s3":
		s, err := NewS3Store(ctx, S3Config{
			Bucket:     cfg.S3Bucket,
			Region:     cfg.S3Region,
			Endpoint:   cfg.S3Endpoint,
			AccessKey:  cfg.S3AccessKey,
			SecretKey:  cfg.S3SecretKey,
			PathStyle:  cfg.S3UsePathStyle,
			PresignTTL: cfg.PresignTTL,
		})
		if err != nil {
			return nil, errs.NewExternal("blob.Open", "s3", "configure client", err)
		}
		br := circuit.New(circuit.Config{
			Name:              "blobstore",
			OperationTimeout:  cfg.BlobTimeout,
			OpenFor:           cfg.BlobOpenFor,
			MaxConsecFailures: 5,
			WindowSize:        20,
			FailureRate:       cfg.BlobFailureRate,
			MinSamples:        10,
		}, logger)
		return NewBreakerStore(s, br), nil
	default:
		return nil, fmt.Errorf("blob: unsupported driver %q", cfg.BlobDriver)
	}
}

// BreakerStore runs every call through a circuit breaker. A missing blob is an answer, not a
// failure, so it does not count against the breaker.
type BreakerStore struct {
	next    Store
	breaker *circuit.Breaker
}

func NewBreakerStore(next Store, breaker *circuit.Breaker) *BreakerStore {
	return &BreakerStore{next: next, breaker: breaker}
}

var _ Store = (*BreakerStore)(nil)

func (b *BreakerStore) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	return b.breaker.Do(ctx, func(ctx context.Context) error {
		return b.next.Upload(ctx, path, data, contentType)
	}, nil)
}

func (b *BreakerStore) GetDownloadURL(ctx context.Context, path string) (string, error) {
	var (
		url      string
		notFound error
	)
	err := b.breaker.Do(ctx, func(ctx context.Context) error {
		u, err := b.next.GetDownloadURL(ctx, path)
		if errors.Is(err, domain.ErrNotFound) {
			notFound = err
			return nil
		}
		url = u
		return err
	}, nil)
	if err != nil {
		return "", err
	}
	if notFound != nil {
		return "", notFound
	}
	return url, nil
}

func (b *BreakerStore) Ping(ctx context.Context) error {
	return b.breaker.Do(ctx, b.next.Ping, nil)
}

// State exposes the breaker state for the health report.
func (b *BreakerStore) State() circuit.State { return b.breaker.State() }
