// Package shell is a minimal command interpreter on top of the virtual file
// system. Every command of a pipeline runs in its own task with its standard
// slots wired to the shell streams or to the unnamed pipes joining stages.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	vfs "github.com/mwantia/xila"
	"github.com/mwantia/xila/data"
	"github.com/mwantia/xila/log"
	"github.com/mwantia/xila/task"
)

// Exit codes reported by the shell itself.
const (
	ExitSuccess  = 0
	ExitFailure  = 1
	ExitUsage    = 2
	ExitNotFound = 127
)

// Shell handles command registration, parsing and execution.
type Shell struct {
	mu      sync.RWMutex
	log     *log.Logger
	options *Options

	vfs   *vfs.VirtualFileSystem
	tasks *task.Manager
	cmds  map[string]Command
}

// job is one stage of a pipeline. Its slots belong to the parent task until
// the spawned task moves them to its standard slots.
type job struct {
	command Command
	args    *Arguments

	in, out, err data.UniqueFileIdentifier
	code         int
}

func New(v *vfs.VirtualFileSystem, tasks *task.Manager, opts ...Option) (*Shell, error) {
	if v == nil || tasks == nil {
		return nil, data.ErrInvalidParameter
	}

	options := newDefaultOptions()
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}

	return &Shell{
		log:     options.Logger.Named("shell"),
		options: options,
		vfs:     v,
		tasks:   tasks,
		cmds:    make(map[string]Command),
	}, nil
}

// Register registers a custom command
func (s *Shell) Register(cmd Command) error {
	if cmd == nil || cmd.Name() == "" {
		return ErrInvalidCommand
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name := cmd.Name()
	if _, exists := s.cmds[name]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, name)
	}

	s.cmds[name] = cmd
	return nil
}

// Unregister removes a registered command
func (s *Shell) Unregister(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.cmds[name]; !exists {
		return fmt.Errorf("%w: %s", ErrCommandNotFound, name)
	}

	delete(s.cmds, name)
	return nil
}

// Get returns a command by name
func (s *Shell) Get(name string) (Command, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cmd, exists := s.cmds[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrCommandNotFound, name)
	}

	return cmd, nil
}

// List returns all registered commands sorted by name
func (s *Shell) List() []Command {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cmds := make([]Command, 0, len(s.cmds))
	for _, cmd := range s.cmds {
		cmds = append(cmds, cmd)
	}
	slices.SortFunc(cmds, func(a, b Command) int {
		return strings.Compare(a.Name(), b.Name())
	})
	return cmds
}

// Execute runs line as a pipeline of child tasks of the task owning
// standard. It returns the exit code and error of the last stage.
func (s *Shell) Execute(ctx context.Context, standard *vfs.Standard, line string) (int, error) {
	stages, err := Split(line)
	if err != nil {
		_ = standard.PrintError(ctx, "xila: %v\n", err)
		return ExitUsage, err
	}
	if len(stages) == 0 {
		return ExitSuccess, nil
	}

	jobs := make([]*job, len(stages))
	for i, words := range stages {
		cmd, err := s.Get(words[0])
		if err != nil {
			_ = standard.PrintError(ctx, "%s: command not found\n", words[0])
			return ExitNotFound, err
		}

		args, err := NewParser(cmd.GetFlags()).Parse(words[1:])
		if err != nil {
			_ = standard.PrintError(ctx, "%s: %v\nusage: %s\n", words[0], err, cmd.Usage())
			return ExitUsage, err
		}
		jobs[i] = &job{command: cmd, args: args}
	}

	if err := s.plumb(ctx, standard, jobs); err != nil {
		_ = standard.PrintError(ctx, "xila: %v\n", err)
		return ExitFailure, err
	}

	return s.run(ctx, standard.Task(), jobs)
}

// plumb gives every job its three slots in the parent task: duplicates of
// the shell streams at the ends of the pipeline, unnamed pipes in between.
func (s *Shell) plumb(ctx context.Context, standard *vfs.Standard, jobs []*job) error {
	parent := standard.Task()
	acquired := make([]data.UniqueFileIdentifier, 0, 3*len(jobs))

	duplicate := func(file data.UniqueFileIdentifier) (data.UniqueFileIdentifier, error) {
		duplicated, err := s.vfs.Duplicate(ctx, parent, file)
		if err == nil {
			acquired = append(acquired, duplicated)
		}
		return duplicated, err
	}

	fail := func(err error) error {
		s.release(ctx, parent, acquired...)
		return err
	}

	var err error
	for i, j := range jobs {
		if j.err, err = duplicate(standard.Error); err != nil {
			return fail(err)
		}

		if i == 0 {
			if j.in, err = duplicate(standard.In); err != nil {
				return fail(err)
			}
		}

		if i == len(jobs)-1 {
			if j.out, err = duplicate(standard.Out); err != nil {
				return fail(err)
			}
			continue
		}

		read, write, err := s.vfs.CreateUnnamedPipe(ctx, parent, s.options.PipeSize, data.StatusNone)
		if err != nil {
			return fail(err)
		}
		acquired = append(acquired, read, write)
		j.out, jobs[i+1].in = write, read
	}
	return nil
}

func (s *Shell) run(ctx context.Context, parent data.TaskIdentifier, jobs []*job) (int, error) {
	handles := make([]*task.JoinHandle, 0, len(jobs))
	for i, j := range jobs {
		handle, _, err := s.tasks.Spawn(parent, j.command.Name(), nil, s.body(parent, j))
		if err != nil {
			for _, pending := range jobs[i:] {
				s.release(ctx, parent, pending.in, pending.out, pending.err)
			}
			s.wait(ctx, handles)
			return ExitFailure, err
		}
		handles = append(handles, handle)
	}

	errs := s.wait(ctx, handles)
	if err := ctx.Err(); err != nil {
		return ExitFailure, err
	}

	last := len(jobs) - 1
	for i, err := range errs[:last] {
		if err != nil {
			s.log.Debug("pipeline stage '%s' failed: %v", jobs[i].command.Name(), err)
		}
	}
	return jobs[last].code, errs[last]
}

// body runs a job inside its task. The standard slots are released when the
// command returns.
func (s *Shell) body(parent data.TaskIdentifier, j *job) task.Body {
	return func(ctx context.Context) error {
		current := task.Current(ctx)

		standard, err := s.vfs.TransfertStandard(ctx, parent, j.in, j.out, j.err, current)
		if err != nil {
			j.code = ExitFailure
			return err
		}
		defer func() {
			_ = standard.Close(context.WithoutCancel(ctx))
		}()

		env := &Environment{
			Shell:    s,
			VFS:      s.vfs,
			Tasks:    s.tasks,
			Task:     current,
			Standard: standard,
		}

		j.code, err = j.command.Execute(ctx, env, j.args)
		if err != nil {
			_ = standard.PrintError(ctx, "%s: %v\n", j.command.Name(), err)
		}
		return err
	}
}

// wait joins every handle. When ctx ends first the remaining tasks are
// killed.
func (s *Shell) wait(ctx context.Context, handles []*task.JoinHandle) []error {
	errs := make([]error, len(handles))
	for i, handle := range handles {
		errs[i] = handle.Join(ctx)
		if ctx.Err() == nil {
			continue
		}

		for _, pending := range handles[i:] {
			if err := s.tasks.SendSignal(pending.Task(), task.SignalKill); err != nil {
				s.log.Debug("failed to kill task %d: %v", pending.Task(), err)
			}
		}
		break
	}
	return errs
}

func (s *Shell) release(ctx context.Context, parent data.TaskIdentifier, files ...data.UniqueFileIdentifier) {
	for _, file := range files {
		if err := s.vfs.Close(ctx, parent, file); err != nil {
			s.log.Debug("failed to release file %v of task %d: %v", file, parent, err)
		}
	}
}

// Run reads command lines from the standard input of standard and executes
// them until the input ends or "exit" is read.
func (s *Shell) Run(ctx context.Context, standard *vfs.Standard) error {
	reader := bufio.NewReader(standard.Stdin(ctx))
	for {
		if s.options.Prompt != "" {
			if err := standard.Print(ctx, "%s", s.options.Prompt); err != nil {
				return err
			}
		}

		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "exit" {
			return nil
		}
		if line != "" {
			code, err := s.Execute(ctx, standard, line)
			s.log.Debug("'%s' exited with %d: %v", line, code, err)
		}

		if errors.Is(err, io.EOF) {
			return nil
		}
	}
}
