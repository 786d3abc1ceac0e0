package vfs

import (
	"github.com/mwantia/xila/backend/devices"
	"github.com/mwantia/xila/backend/pipe"
	"github.com/mwantia/xila/data"
	"github.com/mwantia/xila/log"
)

type VirtualFileSystemOptions struct {
	Logger *log.Logger
	Clock  data.Clock

	// Options handed to the built-in backends.
	PipeOptions   []pipe.Option
	DeviceOptions []devices.Option
}

type VirtualFileSystemOption func(*VirtualFileSystemOptions) error

func newDefaultVirtualFileSystemOptions() *VirtualFileSystemOptions {
	return &VirtualFileSystemOptions{
		Logger: log.Discard(),
		Clock:  data.SystemClock,
	}
}

// WithLogger sets the logger of the virtual file system. The built-in
// backends receive named children of it.
func WithLogger(logger *log.Logger) VirtualFileSystemOption {
	return func(opts *VirtualFileSystemOptions) error {
		if logger == nil {
			return data.ErrInvalidParameter
		}
		opts.Logger = logger
		return nil
	}
}

func WithClock(clock data.Clock) VirtualFileSystemOption {
	return func(opts *VirtualFileSystemOptions) error {
		if clock == nil {
			return data.ErrInvalidParameter
		}
		opts.Clock = clock
		return nil
	}
}

func WithPipeOptions(options ...pipe.Option) VirtualFileSystemOption {
	return func(opts *VirtualFileSystemOptions) error {
		opts.PipeOptions = append(opts.PipeOptions, options...)
		return nil
	}
}

func WithDeviceOptions(options ...devices.Option) VirtualFileSystemOption {
	return func(opts *VirtualFileSystemOptions) error {
		opts.DeviceOptions = append(opts.DeviceOptions, options...)
		return nil
	}
}
