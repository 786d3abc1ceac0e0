package devices

import (
	"time"

	"github.com/mwantia/xila/data"
	"github.com/mwantia/xila/log"
)

const defaultPollInterval = 10 * time.Millisecond

type Options struct {
	Logger *log.Logger
	Clock  data.Clock

	// PollInterval is the pause between attempts of a blocking terminal read.
	PollInterval time.Duration
}

type Option func(*Options) error

func newDefaultOptions() *Options {
	return &Options{
		Logger:       log.Discard(),
		Clock:        data.SystemClock,
		PollInterval: defaultPollInterval,
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(o *Options) error {
		o.Logger = logger.Named("device")
		return nil
	}
}

func WithClock(clock data.Clock) Option {
	return func(o *Options) error {
		o.Clock = clock
		return nil
	}
}

func WithPollInterval(interval time.Duration) Option {
	return func(o *Options) error {
		if interval <= 0 {
			return data.ErrInvalidParameter
		}
		o.PollInterval = interval
		return nil
	}
}
