// Package backend defines the contract every mountable file system
// implements, together with the per-task open file table they share.
//
// Paths handed to a backend are residuals: the virtual file system strips the
// mount prefix before dispatching. Backends own their own lock and never call
// back into the virtual file system.
package backend

import (
	"context"

	"github.com/mwantia/xila/data"
)

// FileSystem is implemented by every backend mounted into the virtual file
// system, including the built-in pipe and device backends.
type FileSystem interface {
	// Open opens path on behalf of task and returns the local slot holding
	// the new handle. time, user and group are recorded on creation.
	Open(ctx context.Context, task data.TaskIdentifier, path data.Path, flags data.Flags, time data.Time, user data.UserIdentifier, group data.GroupIdentifier) (data.LocalFileIdentifier, error)
	Close(ctx context.Context, file data.LocalFileIdentifier) error
	// CloseAll releases every file and directory slot owned by task.
	CloseAll(ctx context.Context, task data.TaskIdentifier) error
	Duplicate(ctx context.Context, file data.LocalFileIdentifier) (data.LocalFileIdentifier, error)
	// Transfert moves a slot to newTask, optionally at an explicit slot
	// number, and returns the new local identifier.
	Transfert(ctx context.Context, newTask data.TaskIdentifier, file data.LocalFileIdentifier, newFile *data.FileIdentifier) (data.LocalFileIdentifier, error)

	Read(ctx context.Context, file data.LocalFileIdentifier, p []byte, time data.Time) (int, error)
	Write(ctx context.Context, file data.LocalFileIdentifier, p []byte, time data.Time) (int, error)
	SetPosition(ctx context.Context, file data.LocalFileIdentifier, position data.Position) (uint64, error)
	Flush(ctx context.Context, file data.LocalFileIdentifier) error

	CreateDirectory(ctx context.Context, path data.Path, time data.Time, user data.UserIdentifier, group data.GroupIdentifier) error
	OpenDirectory(ctx context.Context, task data.TaskIdentifier, path data.Path) (data.LocalFileIdentifier, error)
	// ReadDirectory returns the next entry, or nil once the directory is
	// exhausted.
	ReadDirectory(ctx context.Context, file data.LocalFileIdentifier) (*data.Entry, error)
	SetPositionDirectory(ctx context.Context, file data.LocalFileIdentifier, position uint64) error
	GetPositionDirectory(ctx context.Context, file data.LocalFileIdentifier) (uint64, error)
	RewindDirectory(ctx context.Context, file data.LocalFileIdentifier) error
	CloseDirectory(ctx context.Context, file data.LocalFileIdentifier) error

	// GetStatistics leaves Statistics.FileSystem zero; the caller knows
	// which identifier the backend is mounted under.
	GetStatistics(ctx context.Context, file data.LocalFileIdentifier) (data.Statistics, error)
	GetMode(ctx context.Context, file data.LocalFileIdentifier) (data.Mode, error)
	GetMetadata(ctx context.Context, file data.LocalFileIdentifier) (data.Metadata, error)
	GetMetadataFromPath(ctx context.Context, path data.Path) (data.Metadata, error)
	GetStatisticsFromPath(ctx context.Context, path data.Path) (data.Statistics, error)
	SetMetadataFromPath(ctx context.Context, path data.Path, metadata data.Metadata) error

	Remove(ctx context.Context, path data.Path) error
	Rename(ctx context.Context, source, destination data.Path) error
}

// Truncater is implemented by backends able to resize an open file. Data up
// to the new length is preserved and growth is zero-filled.
type Truncater interface {
	Truncate(ctx context.Context, file data.LocalFileIdentifier, size uint64) error
}

// Usage is implemented by backends that can report how many slots are
// currently open, which the virtual file system consults before unmounting.
type Usage interface {
	OpenCount() int
}

// Closer is implemented by backends holding external resources released on
// unmount.
type Closer interface {
	Shutdown(ctx context.Context) error
}
