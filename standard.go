package vfs

import (
	"context"
	"fmt"

	"github.com/mwantia/xila/data"
)

// Standard holds the three standard slots of a task.
type Standard struct {
	vfs  *VirtualFileSystem
	task data.TaskIdentifier

	In    data.UniqueFileIdentifier
	Out   data.UniqueFileIdentifier
	Error data.UniqueFileIdentifier
}

// OpenStandard opens stdin, stdout and stderr on behalf of task and places
// them at the standard slots of task. The outputs are opened in append mode
// so duplicates handed to child tasks never overwrite each other.
func (v *VirtualFileSystem) OpenStandard(ctx context.Context, task data.TaskIdentifier, stdin, stdout, stderr data.Path) (*Standard, error) {
	targets := []struct {
		path   data.Path
		mode   data.Mode
		status data.Status
	}{
		{stdin, data.ModeRead, data.StatusNone},
		{stdout, data.ModeWrite, data.StatusAppend},
		{stderr, data.ModeWrite, data.StatusAppend},
	}

	opened := make([]data.UniqueFileIdentifier, 0, len(targets))
	for _, target := range targets {
		file, err := v.Open(ctx, task, target.path, data.NewFlags(target.mode, data.OpenNone, target.status))
		if err != nil {
			v.closeEach(ctx, task, opened)
			return nil, err
		}
		opened = append(opened, file)
	}

	s, err := v.TransfertStandard(ctx, task, opened[0], opened[1], opened[2], task)
	if err != nil {
		return nil, err
	}

	v.log.Debug("opened standard streams of task %d", task)
	return s, nil
}

// TransfertStandard moves three open slots of task to the standard slots of
// newTask. Every slot not yet moved is closed when one of them fails.
func (v *VirtualFileSystem) TransfertStandard(ctx context.Context, task data.TaskIdentifier, in, out, err data.UniqueFileIdentifier, newTask data.TaskIdentifier) (*Standard, error) {
	s := &Standard{vfs: v, task: newTask}

	sources := []data.UniqueFileIdentifier{in, out, err}
	stores := []*data.UniqueFileIdentifier{&s.In, &s.Out, &s.Error}
	slots := []data.FileIdentifier{
		data.StandardInFileIdentifier,
		data.StandardOutFileIdentifier,
		data.StandardErrorFileIdentifier,
	}

	for i, source := range sources {
		slot := slots[i]
		moved, failure := v.TransfertFile(ctx, task, source, newTask, &slot)
		if failure != nil {
			v.closeEach(ctx, task, sources[i:])
			for _, store := range stores[:i] {
				_ = v.Close(ctx, newTask, *store)
			}
			return nil, failure
		}
		*stores[i] = moved
	}
	return s, nil
}

func (v *VirtualFileSystem) closeEach(ctx context.Context, task data.TaskIdentifier, files []data.UniqueFileIdentifier) {
	for _, file := range files {
		if err := v.Close(ctx, task, file); err != nil {
			v.log.Warn("failed to close file %v of task %d: %v", file, task, err)
		}
	}
}

func (s *Standard) Task() data.TaskIdentifier {
	return s.task
}

// Duplicate gives newTask its own copies of the three streams, at the same
// standard slots.
func (s *Standard) Duplicate(ctx context.Context, newTask data.TaskIdentifier) (*Standard, error) {
	duplicates := make([]data.UniqueFileIdentifier, 0, 3)
	for _, source := range []data.UniqueFileIdentifier{s.In, s.Out, s.Error} {
		file, err := s.vfs.Duplicate(ctx, s.task, source)
		if err != nil {
			s.vfs.closeEach(ctx, s.task, duplicates)
			return nil, err
		}
		duplicates = append(duplicates, file)
	}
	return s.vfs.TransfertStandard(ctx, s.task, duplicates[0], duplicates[1], duplicates[2], newTask)
}

// Close releases the three slots, returning the first failure.
func (s *Standard) Close(ctx context.Context) error {
	var errs data.Errors
	for _, file := range []data.UniqueFileIdentifier{s.In, s.Out, s.Error} {
		errs.Add(s.vfs.Close(ctx, s.task, file))
	}
	return errs.First()
}

func (s *Standard) ReadLine(ctx context.Context) (string, error) {
	return s.vfs.ReadLine(ctx, s.task, s.In)
}

func (s *Standard) Print(ctx context.Context, format string, args ...any) error {
	return s.vfs.WriteAll(ctx, s.task, s.Out, fmt.Appendf(nil, format, args...))
}

func (s *Standard) PrintError(ctx context.Context, format string, args ...any) error {
	return s.vfs.WriteAll(ctx, s.task, s.Error, fmt.Appendf(nil, format, args...))
}

// Stdin, Stdout and Stderr wrap the streams for use with the io interfaces.
func (s *Standard) Stdin(ctx context.Context) *File {
	return s.vfs.NewFile(ctx, s.task, s.In)
}

func (s *Standard) Stdout(ctx context.Context) *File {
	return s.vfs.NewFile(ctx, s.task, s.Out)
}

func (s *Standard) Stderr(ctx context.Context) *File {
	return s.vfs.NewFile(ctx, s.task, s.Error)
}
