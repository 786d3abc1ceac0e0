package pipe

import (
	"github.com/mwantia/xila/data"
	"github.com/mwantia/xila/log"
)

type Options struct {
	Logger *log.Logger

	// DefaultSize is used when a pipe is created with size zero.
	DefaultSize int
	MaximumSize int
}

type Option func(*Options) error

func newDefaultOptions() *Options {
	return &Options{
		Logger:      log.Discard(),
		DefaultSize: 512,
		MaximumSize: 1 << 20,
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(o *Options) error {
		o.Logger = logger.Named("pipe")
		return nil
	}
}

func WithDefaultSize(size int) Option {
	return func(o *Options) error {
		if size <= 0 {
			return data.ErrInvalidParameter
		}
		o.DefaultSize = size
		return nil
	}
}

func WithMaximumSize(size int) Option {
	return func(o *Options) error {
		if size <= 0 {
			return data.ErrInvalidParameter
		}
		o.MaximumSize = size
		return nil
	}
}
