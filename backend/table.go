package backend

import (
	"maps"
	"slices"

	"github.com/mwantia/xila/data"
)

// FileTable maps local slots to backend specific handles. It is not
// synchronized; backends guard it with their own lock.
type FileTable[T any] struct {
	entries map[data.LocalFileIdentifier]T
}

func NewFileTable[T any]() *FileTable[T] {
	return &FileTable[T]{
		entries: make(map[data.LocalFileIdentifier]T),
	}
}

// Insert stores value under the smallest free slot of task, taken from the
// directory window when directory is set.
func (t *FileTable[T]) Insert(task data.TaskIdentifier, directory bool, value T) (data.LocalFileIdentifier, error) {
	local, err := data.GetNewFileSlot(task, directory, t.entries)
	if err != nil {
		return data.LocalFileIdentifier{}, err
	}

	t.entries[local] = value
	return local, nil
}

// InsertAt stores value under an explicit slot, failing when it is taken.
func (t *FileTable[T]) InsertAt(local data.LocalFileIdentifier, value T) error {
	if _, exists := t.entries[local]; exists {
		return data.ErrAlreadyExists
	}

	t.entries[local] = value
	return nil
}

func (t *FileTable[T]) Get(local data.LocalFileIdentifier) (T, error) {
	value, exists := t.entries[local]
	if !exists {
		var zero T
		return zero, data.ErrInvalidIdentifier
	}
	return value, nil
}

func (t *FileTable[T]) Remove(local data.LocalFileIdentifier) (T, error) {
	value, exists := t.entries[local]
	if !exists {
		var zero T
		return zero, data.ErrInvalidIdentifier
	}

	delete(t.entries, local)
	return value, nil
}

// Transfert re-keys a slot to newTask. Without an explicit newFile the
// smallest free slot in the same window is chosen.
func (t *FileTable[T]) Transfert(local data.LocalFileIdentifier, newTask data.TaskIdentifier, newFile *data.FileIdentifier) (data.LocalFileIdentifier, error) {
	value, exists := t.entries[local]
	if !exists {
		return data.LocalFileIdentifier{}, data.ErrInvalidIdentifier
	}

	var target data.LocalFileIdentifier
	if newFile != nil {
		target = data.NewLocalFileIdentifier(newTask, *newFile)
		if target == local {
			return local, nil
		}
		if _, used := t.entries[target]; used {
			return data.LocalFileIdentifier{}, data.ErrAlreadyExists
		}
	} else {
		var err error
		if target, err = data.GetNewFileSlot(newTask, local.File.IsDirectory(), t.entries); err != nil {
			return data.LocalFileIdentifier{}, err
		}
	}

	delete(t.entries, local)
	t.entries[target] = value
	return target, nil
}

// RemoveAll drains every slot owned by task, in slot order.
func (t *FileTable[T]) RemoveAll(task data.TaskIdentifier) []T {
	locals := make([]data.LocalFileIdentifier, 0)
	for local := range t.entries {
		if local.Task == task {
			locals = append(locals, local)
		}
	}
	slices.SortFunc(locals, func(a, b data.LocalFileIdentifier) int {
		return int(a.File) - int(b.File)
	})

	values := make([]T, 0, len(locals))
	for _, local := range locals {
		values = append(values, t.entries[local])
		delete(t.entries, local)
	}
	return values
}

// Any reports whether some slot satisfies match.
func (t *FileTable[T]) Any(match func(T) bool) bool {
	for value := range maps.Values(t.entries) {
		if match(value) {
			return true
		}
	}
	return false
}

func (t *FileTable[T]) Len() int {
	return len(t.entries)
}

// Values returns every stored handle in no particular order.
func (t *FileTable[T]) Values() []T {
	return slices.Collect(maps.Values(t.entries))
}
