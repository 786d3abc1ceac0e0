package mount

import (
	"github.com/mwantia/xila/data"
	"github.com/mwantia/xila/log"
)

type Options struct {
	Logger *log.Logger

	ReadOnly bool // Whether the mount is read-only.

	// Owner of the root directory when the storage is empty.
	RootUser  data.UserIdentifier
	RootGroup data.GroupIdentifier
	Clock     data.Clock
}

type Option func(*Options) error

func newDefaultOptions() *Options {
	return &Options{
		Logger:    log.Discard(),
		ReadOnly:  false,
		RootUser:  data.RootUserIdentifier,
		RootGroup: data.RootGroupIdentifier,
		Clock:     data.SystemClock,
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(o *Options) error {
		o.Logger = logger.Named("mount")
		return nil
	}
}

// AsReadOnly specifies, if this mount is in a readonly state.
func AsReadOnly() Option {
	return func(o *Options) error {
		o.ReadOnly = true
		return nil
	}
}

// WithRootOwner sets the owner given to the root directory of a fresh storage.
func WithRootOwner(user data.UserIdentifier, group data.GroupIdentifier) Option {
	return func(o *Options) error {
		o.RootUser = user
		o.RootGroup = group
		return nil
	}
}

func WithClock(clock data.Clock) Option {
	return func(o *Options) error {
		if clock == nil {
			return data.ErrInvalidParameter
		}
		o.Clock = clock
		return nil
	}
}
