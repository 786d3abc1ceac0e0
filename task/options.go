package task

import (
	"maps"

	"github.com/mwantia/xila/data"
	"github.com/mwantia/xila/log"
)

type Options struct {
	Logger *log.Logger

	// Credentials and environment of the root task.
	RootName        string
	RootUser        data.UserIdentifier
	RootGroup       data.GroupIdentifier
	RootEnvironment map[string]string

	// Spawners registered at creation; the manager needs at least one to
	// spawn anything.
	Spawners int
}

type Option func(*Options) error

func newDefaultOptions() *Options {
	return &Options{
		Logger:          log.Discard(),
		RootName:        "xila",
		RootUser:        data.RootUserIdentifier,
		RootGroup:       data.RootGroupIdentifier,
		RootEnvironment: make(map[string]string),
		Spawners:        1,
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(o *Options) error {
		o.Logger = logger.Named("task")
		return nil
	}
}

func WithRootCredentials(user data.UserIdentifier, group data.GroupIdentifier) Option {
	return func(o *Options) error {
		o.RootUser = user
		o.RootGroup = group
		return nil
	}
}

func WithRootEnvironment(environment map[string]string) Option {
	return func(o *Options) error {
		for name := range environment {
			if !isValidName(name) {
				return ErrInvalidName
			}
		}
		o.RootEnvironment = make(map[string]string, len(environment))
		maps.Copy(o.RootEnvironment, environment)
		return nil
	}
}

// WithSpawners sets how many spawners are registered up front.
func WithSpawners(count int) Option {
	return func(o *Options) error {
		if count < 0 {
			return data.ErrInvalidParameter
		}
		o.Spawners = count
		return nil
	}
}
