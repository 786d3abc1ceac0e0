package data

import (
	"fmt"
	"math"
)

// TaskIdentifier names a task in the task manager.
type TaskIdentifier uint32

// RootTaskIdentifier is the task created at startup; it is its own parent.
const RootTaskIdentifier TaskIdentifier = 0

const (
	MinimumTaskIdentifier TaskIdentifier = RootTaskIdentifier + 1
	MaximumTaskIdentifier TaskIdentifier = math.MaxUint32
)

// UserIdentifier and GroupIdentifier come from the users collaborator.
type UserIdentifier uint16

type GroupIdentifier uint16

const (
	RootUserIdentifier  UserIdentifier  = 0
	RootGroupIdentifier GroupIdentifier = 0
)

// FileIdentifier is a per-task slot number.
type FileIdentifier uint16

const (
	StandardInFileIdentifier    FileIdentifier = 0
	StandardOutFileIdentifier   FileIdentifier = 1
	StandardErrorFileIdentifier FileIdentifier = 2

	// MinimumFileIdentifier is the smallest slot handed to ordinary files.
	MinimumFileIdentifier FileIdentifier = 3

	// DirectoryThreshold separates file slots (below) from directory slots
	// (at or above).
	DirectoryThreshold FileIdentifier = 1 << 15

	MaximumFileIdentifier FileIdentifier = math.MaxUint16
)

// IsDirectory reports whether the slot denotes a directory handle.
func (f FileIdentifier) IsDirectory() bool {
	return f >= DirectoryThreshold
}

// FileSystemIdentifier is assigned at mount.
type FileSystemIdentifier uint16

const (
	PipeFileSystemIdentifier   FileSystemIdentifier = 0
	DeviceFileSystemIdentifier FileSystemIdentifier = 1

	MinimumFileSystemIdentifier FileSystemIdentifier = 2
	MaximumFileSystemIdentifier FileSystemIdentifier = math.MaxUint16
)

// Inode is unique inside a single backend.
type Inode uint64

const (
	MinimumInode Inode = 1
	MaximumInode Inode = math.MaxUint64
)

// LocalFileIdentifier names an open handle inside one backend.
type LocalFileIdentifier struct {
	Task TaskIdentifier
	File FileIdentifier
}

func NewLocalFileIdentifier(task TaskIdentifier, file FileIdentifier) LocalFileIdentifier {
	return LocalFileIdentifier{Task: task, File: file}
}

func (l LocalFileIdentifier) String() string {
	return fmt.Sprintf("%d:%d", l.Task, l.File)
}

// IntoUnique tags the local slot with the backend that owns it.
func (l LocalFileIdentifier) IntoUnique(fs FileSystemIdentifier) UniqueFileIdentifier {
	return UniqueFileIdentifier{FileSystem: fs, File: l.File}
}

// UniqueFileIdentifier is what the virtual file system hands to callers. The
// task is implicit in the caller's context.
type UniqueFileIdentifier struct {
	FileSystem FileSystemIdentifier
	File       FileIdentifier
}

func NewUniqueFileIdentifier(fs FileSystemIdentifier, file FileIdentifier) UniqueFileIdentifier {
	return UniqueFileIdentifier{FileSystem: fs, File: file}
}

// IntoLocal binds the slot to the calling task.
func (u UniqueFileIdentifier) IntoLocal(task TaskIdentifier) LocalFileIdentifier {
	return LocalFileIdentifier{Task: task, File: u.File}
}

func (u UniqueFileIdentifier) String() string {
	return fmt.Sprintf("%d/%d", u.FileSystem, u.File)
}

// Pack encodes the pair into 32 bits for foreign callers.
func (u UniqueFileIdentifier) Pack() uint32 {
	return uint32(u.FileSystem)<<16 | uint32(u.File)
}

func UnpackUniqueFileIdentifier(v uint32) UniqueFileIdentifier {
	return UniqueFileIdentifier{
		FileSystem: FileSystemIdentifier(v >> 16),
		File:       FileIdentifier(v & 0xFFFF),
	}
}

// GetNewFileIdentifier returns the smallest slot in [lower, upper) not
// already held by task in existing.
func GetNewFileIdentifier[V any](task TaskIdentifier, lower, upper FileIdentifier, existing map[LocalFileIdentifier]V) (LocalFileIdentifier, error) {
	for candidate := uint32(lower); candidate < uint32(upper); candidate++ {
		local := NewLocalFileIdentifier(task, FileIdentifier(candidate))
		if _, used := existing[local]; !used {
			return local, nil
		}
	}
	return LocalFileIdentifier{}, ErrTooManyOpenFiles
}

// GetNewFileSlot is GetNewFileIdentifier using the file or directory window.
func GetNewFileSlot[V any](task TaskIdentifier, directory bool, existing map[LocalFileIdentifier]V) (LocalFileIdentifier, error) {
	if directory {
		return GetNewFileIdentifier(task, DirectoryThreshold, MaximumFileIdentifier, existing)
	}
	return GetNewFileIdentifier(task, MinimumFileIdentifier, DirectoryThreshold, existing)
}

// GetNewInode returns the smallest inode not present in existing.
func GetNewInode[V any](existing map[Inode]V) (Inode, error) {
	for candidate := MinimumInode; candidate < MaximumInode; candidate++ {
		if _, used := existing[candidate]; !used {
			return candidate, nil
		}
	}
	return 0, ErrTooManyOpenFiles
}

// GetNewFileSystemIdentifier returns the smallest free backend identifier.
func GetNewFileSystemIdentifier[V any](existing map[FileSystemIdentifier]V) (FileSystemIdentifier, error) {
	for candidate := uint32(MinimumFileSystemIdentifier); candidate < uint32(MaximumFileSystemIdentifier); candidate++ {
		if _, used := existing[FileSystemIdentifier(candidate)]; !used {
			return FileSystemIdentifier(candidate), nil
		}
	}
	return 0, ErrTooManyMountedFileSystems
}
