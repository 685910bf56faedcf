package storage

import "fmt"

// Options selects and configures an adapter.
type Options struct {
	Adapter   string // "local" or "s3"
	LocalPath string
	S3        S3Options
}

// NewAdapter creates a new storage adapter based on the configuration
func NewAdapter(opts Options) (Adapter, error) {
	switch opts.Adapter {
	case "", "local":
		return NewLocalAdapter(opts.LocalPath)
	case "s3":
		return NewS3Adapter(opts.S3)
	default:
		return nil, fmt.Errorf("unknown storage adapter: %s", opts.Adapter)
	}
}
