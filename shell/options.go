package shell

import (
	"github.com/mwantia/xila/data"
	"github.com/mwantia/xila/log"
)

type Options struct {
	Logger *log.Logger

	// PipeSize is the capacity of the pipes joining pipeline stages; zero
	// picks the default of the pipe backend.
	PipeSize int

	// Prompt is written before every line read by Run.
	Prompt string
}

type Option func(*Options) error

func newDefaultOptions() *Options {
	return &Options{
		Logger: log.Discard(),
		Prompt: "$ ",
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(o *Options) error {
		if logger == nil {
			return data.ErrInvalidParameter
		}
		o.Logger = logger
		return nil
	}
}

func WithPipeSize(size int) Option {
	return func(o *Options) error {
		if size < 0 {
			return data.ErrInvalidParameter
		}
		o.PipeSize = size
		return nil
	}
}

func WithPrompt(prompt string) Option {
	return func(o *Options) error {
		o.Prompt = prompt
		return nil
	}
}
