// Package storage writes parse outputs to a local directory or an S3 bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Adapter defines the interface for output backends
type Adapter interface {
	// Put stores data at the given path
	Put(ctx context.Context, path string, data io.Reader) error

	// Get retrieves data from the given path
	Get(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete removes data at the given path
	Delete(ctx context.Context, path string) error

	// Exists checks if data exists at the given path
	Exists(ctx context.Context, path string) (bool, error)

	// List returns paths matching the given prefix
	List(ctx context.Context, prefix string) ([]string, error)

	// Close cleans up any resources
	Close() error
}

// ErrNotFound is returned by Get when nothing is stored at the path.
var ErrNotFound = errors.New("not found")

// RetryableError marks a failure the caller may retry, such as S3 throttling
// or a 5xx response.
type RetryableError struct {
	Op  string
	Err error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("%s (retryable): %v", e.Op, e.Err)
}

func (e *RetryableError) Unwrap() error { return e.Err }
