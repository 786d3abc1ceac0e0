// Package boot assembles a running system from its configuration: the task
// manager, the users, the virtual file system with its mounts and devices,
// and the shell.
package boot

import (
	"context"
	"errors"
	"io"
	"os"
	"slices"
	"strings"

	vfs "github.com/mwantia/xila"
	"github.com/mwantia/xila/backend/pipe"
	"github.com/mwantia/xila/config"
	"github.com/mwantia/xila/data"
	"github.com/mwantia/xila/log"
	"github.com/mwantia/xila/mount"
	"github.com/mwantia/xila/shell"
	"github.com/mwantia/xila/shell/builtin"
	"github.com/mwantia/xila/task"
	"github.com/mwantia/xila/users"
)

type Options struct {
	Logger *log.Logger

	// Host streams behind console devices.
	ConsoleInput  io.Reader
	ConsoleOutput io.Writer
}

type Option func(*Options) error

func newDefaultOptions() *Options {
	return &Options{
		ConsoleInput:  os.Stdin,
		ConsoleOutput: os.Stdout,
	}
}

// WithLogger replaces the logger built from the log section.
func WithLogger(logger *log.Logger) Option {
	return func(o *Options) error {
		if logger == nil {
			return data.ErrInvalidParameter
		}
		o.Logger = logger
		return nil
	}
}

func WithConsole(in io.Reader, out io.Writer) Option {
	return func(o *Options) error {
		o.ConsoleInput = in
		o.ConsoleOutput = out
		return nil
	}
}

type System struct {
	log     *log.Logger
	options *Options
	config  *config.Config

	Tasks *task.Manager
	Users *users.Memory
	VFS   *vfs.VirtualFileSystem
	Shell *shell.Shell

	closers []io.Closer
}

// Start boots the system described by cfg. On failure everything started so
// far is shut down again.
func Start(ctx context.Context, cfg *config.Config, opts ...Option) (*System, error) {
	options := newDefaultOptions()
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if options.Logger == nil {
		logger, err := newLogger(cfg.Log)
		if err != nil {
			return nil, err
		}
		options.Logger = logger
	}

	s := &System{
		log:     options.Logger,
		options: options,
		config:  cfg,
	}

	if err := s.start(ctx); err != nil {
		if shutdownErr := s.Shutdown(context.WithoutCancel(ctx)); shutdownErr != nil {
			s.log.Warn("failed to shut down after failed start: %v", shutdownErr)
		}
		return nil, err
	}

	s.log.Info("started with %d mounts and %d devices", len(cfg.Mounts), len(cfg.Devices))
	return s, nil
}

func newLogger(c config.LogConfig) (*log.Logger, error) {
	level, err := log.Parse(c.Level)
	if err != nil {
		return nil, err
	}

	logger := log.NewLogger("xila", level, c.File, c.NoTerminal)
	logger.JSON = c.JSON
	return logger, nil
}

func (s *System) start(ctx context.Context) error {
	s.Users = users.NewMemory()
	for _, group := range s.config.Groups {
		if err := s.Users.AddGroup(group); err != nil {
			return err
		}
	}
	for _, user := range s.config.Users {
		if err := s.Users.AddUser(user); err != nil {
			return err
		}
	}

	// viper folds keys to lower case, environment names are upper case
	environment := make(map[string]string, len(s.config.Tasks.Environment))
	for name, value := range s.config.Tasks.Environment {
		environment[strings.ToUpper(name)] = value
	}

	var err error
	s.Tasks, err = task.New(
		task.WithLogger(s.log),
		task.WithSpawners(s.config.Tasks.Spawners),
		task.WithRootEnvironment(environment),
	)
	if err != nil {
		return err
	}

	opts := []vfs.VirtualFileSystemOption{vfs.WithLogger(s.log)}
	if size := s.config.Pipe.DefaultSize; size > 0 {
		opts = append(opts, vfs.WithPipeOptions(pipe.WithDefaultSize(size)))
	}

	s.VFS, err = vfs.NewVirtualFileSystem(s.Tasks, s.Users, opts...)
	if err != nil {
		return err
	}

	if err := s.mountAll(ctx); err != nil {
		return err
	}
	if err := s.registerDevices(ctx); err != nil {
		return err
	}

	s.Shell, err = shell.New(s.VFS, s.Tasks,
		shell.WithLogger(s.log),
		shell.WithPrompt(s.config.Shell.Prompt),
	)
	if err != nil {
		return err
	}
	return builtin.Register(s.Shell)
}

// mountAll mounts parents before their children, creating the mount point
// on the enclosing file system so that it shows up in listings.
func (s *System) mountAll(ctx context.Context) error {
	mounts := slices.Clone(s.config.Mounts)
	slices.SortFunc(mounts, func(a, b config.MountConfig) int {
		return len(data.Path(a.Path).Canonicalize()) - len(data.Path(b.Path).Canonicalize())
	})

	for _, m := range mounts {
		path := data.Path(m.Path).Canonicalize()
		if err := s.ensureDirectory(ctx, path); err != nil {
			return err
		}

		store, err := newStorage(ctx, m)
		if err != nil {
			return err
		}

		opts := []mount.Option{mount.WithLogger(s.log)}
		if m.ReadOnly {
			opts = append(opts, mount.AsReadOnly())
		}

		fs, err := mount.New(ctx, store, opts...)
		if err != nil {
			return err
		}

		if _, err := s.VFS.Mount(ctx, path, fs); err != nil {
			if shutdownErr := fs.Shutdown(ctx); shutdownErr != nil {
				s.log.Warn("failed to close storage of '%s': %v", path, shutdownErr)
			}
			return err
		}
	}
	return nil
}

func (s *System) registerDevices(ctx context.Context) error {
	for _, d := range s.config.Devices {
		path := data.Path(d.Path).Canonicalize()
		if parent, ok := path.Parent(); ok {
			if err := s.ensureDirectory(ctx, parent); err != nil {
				return err
			}
		}

		dev, closer, err := s.newDevice(d)
		if err != nil {
			return err
		}
		if closer != nil {
			s.closers = append(s.closers, closer)
		}

		if err := s.VFS.MountDevice(ctx, data.RootTaskIdentifier, path, dev); err != nil {
			return err
		}
	}
	return nil
}

// ensureDirectory creates path and its parents. Paths no file system covers
// are left alone.
func (s *System) ensureDirectory(ctx context.Context, path data.Path) error {
	if path.IsRoot() {
		return nil
	}
	if exists, err := s.VFS.Exists(ctx, path); err != nil || exists {
		return err
	}

	err := s.VFS.CreateDirectory(ctx, data.RootTaskIdentifier, path, true)
	if err != nil && !errors.Is(err, data.ErrNotFound) {
		return err
	}
	return nil
}

// OpenStandard opens the configured shell streams for the task identifier.
func (s *System) OpenStandard(ctx context.Context, identifier data.TaskIdentifier) (*vfs.Standard, error) {
	return s.VFS.OpenStandard(ctx, identifier,
		data.Path(s.config.Shell.Input),
		data.Path(s.config.Shell.Output),
		data.Path(s.config.Shell.Error),
	)
}

// Execute runs a single command line as the root task.
func (s *System) Execute(ctx context.Context, line string) (int, error) {
	standard, err := s.OpenStandard(ctx, data.RootTaskIdentifier)
	if err != nil {
		return shell.ExitFailure, err
	}
	defer s.closeStandard(ctx, standard)

	return s.Shell.Execute(ctx, standard, line)
}

// Run reads and executes command lines until the console input ends.
func (s *System) Run(ctx context.Context) error {
	standard, err := s.OpenStandard(ctx, data.RootTaskIdentifier)
	if err != nil {
		return err
	}
	defer s.closeStandard(ctx, standard)

	return s.Shell.Run(ctx, standard)
}

func (s *System) closeStandard(ctx context.Context, standard *vfs.Standard) {
	if err := standard.Close(context.WithoutCancel(ctx)); err != nil {
		s.log.Warn("failed to close standard streams: %v", err)
	}
}

// Shutdown stops every task, then unmounts the file systems and releases
// host resources. It returns the first failure.
func (s *System) Shutdown(ctx context.Context) error {
	var errs data.Errors

	if s.Tasks != nil {
		errs.Add(s.Tasks.Shutdown(ctx))
	}
	if s.VFS != nil {
		errs.Add(s.VFS.Shutdown(ctx))
	}
	for _, closer := range s.closers {
		errs.Add(closer.Close())
	}
	s.closers = nil

	if err := errs.First(); err != nil {
		s.log.Error("shutdown failed: %v", err)
		return err
	}

	s.log.Info("shut down")
	return nil
}
