package data

import (
	"errors"
	"fmt"
	"sync"
)

// Error is the single failure taxonomy crossing the file system boundary.
// Values are numbered contiguously from 1, so a zero code always means success
// when the value is passed through a foreign function interface.
type Error uint32

const (
	ErrPermissionDenied Error = iota + 1
	ErrNotFound
	ErrAlreadyExists
	ErrDirectoryAlreadyExists
	ErrFileSystemFull
	ErrFileSystemError
	ErrInvalidPath
	ErrInvalidFile
	ErrInvalidDirectory
	ErrInvalidSymbolicLink
	ErrUnknown
	ErrInvalidIdentifier
	ErrFailedToGetTaskInformations
	ErrFailedToGetUsersInformations
	ErrTooManyMountedFileSystems
	ErrTooManyOpenFiles
	ErrInternalError
	ErrInvalidMode
	ErrUnsupportedOperation
	ErrRessourceBusy
	ErrAlreadyInitialized
	ErrNotInitialized
	ErrFailedToGetUsersManagerInstance
	ErrFailedToGetTaskManagerInstance
	ErrInvalidParameter
	ErrInvalidFlags
	ErrNotDirectory
	ErrIsDirectory
	ErrInputOutput
	ErrDirectoryNotEmpty
	ErrFileTooLarge
	ErrNoAttribute
	ErrNameTooLong
	ErrCorrupted
	ErrNoMemory
	ErrNoSpaceLeft
	ErrTimeError
	ErrInvalidInode
	ErrNotMounted
	ErrAlreadyMounted
	ErrInvalidContext
	ErrBrokenPipe
	ErrOther
)

var errorMessages = map[Error]string{
	ErrPermissionDenied:                "permission denied",
	ErrNotFound:                        "not found",
	ErrAlreadyExists:                   "already exists",
	ErrDirectoryAlreadyExists:          "directory already exists",
	ErrFileSystemFull:                  "file system full",
	ErrFileSystemError:                 "file system error",
	ErrInvalidPath:                     "invalid path",
	ErrInvalidFile:                     "invalid file",
	ErrInvalidDirectory:                "invalid directory",
	ErrInvalidSymbolicLink:             "invalid symbolic link",
	ErrUnknown:                         "unknown",
	ErrInvalidIdentifier:               "invalid identifier",
	ErrFailedToGetTaskInformations:     "failed to get task informations",
	ErrFailedToGetUsersInformations:    "failed to get users informations",
	ErrTooManyMountedFileSystems:       "too many mounted file systems",
	ErrTooManyOpenFiles:                "too many open files",
	ErrInternalError:                   "internal error",
	ErrInvalidMode:                     "invalid mode",
	ErrUnsupportedOperation:            "unsupported operation",
	ErrRessourceBusy:                   "ressource busy",
	ErrAlreadyInitialized:              "already initialized",
	ErrNotInitialized:                  "not initialized",
	ErrFailedToGetUsersManagerInstance: "failed to get users manager instance",
	ErrFailedToGetTaskManagerInstance:  "failed to get task manager instance",
	ErrInvalidParameter:                "invalid parameter",
	ErrInvalidFlags:                    "invalid flags",
	ErrNotDirectory:                    "not a directory",
	ErrIsDirectory:                     "is a directory",
	ErrInputOutput:                     "input/output error",
	ErrDirectoryNotEmpty:               "directory not empty",
	ErrFileTooLarge:                    "file too large",
	ErrNoAttribute:                     "no attribute",
	ErrNameTooLong:                     "name too long",
	ErrCorrupted:                       "corrupted",
	ErrNoMemory:                        "no memory",
	ErrNoSpaceLeft:                     "no space left",
	ErrTimeError:                       "time error",
	ErrInvalidInode:                    "invalid inode",
	ErrNotMounted:                      "not mounted",
	ErrAlreadyMounted:                  "already mounted",
	ErrInvalidContext:                  "invalid context",
	ErrBrokenPipe:                      "broken pipe",
	ErrOther:                           "other",
}

func (e Error) Error() string {
	if msg, ok := errorMessages[e]; ok {
		return "xila: " + msg
	}
	return fmt.Sprintf("xila: unknown error code %d", uint32(e))
}

// Code returns the stable numeric value of the error.
func (e Error) Code() uint32 {
	return uint32(e)
}

// ErrorFromCode converts a numeric code back into an Error.
// Zero is reserved for success and returns nil.
func ErrorFromCode(code uint32) error {
	if code == 0 {
		return nil
	}
	e := Error(code)
	if _, ok := errorMessages[e]; !ok {
		return ErrUnknown
	}
	return e
}

// ToCode extracts the taxonomy code from err. Errors outside the taxonomy are
// reported as ErrUnknown, nil as 0.
func ToCode(err error) uint32 {
	if err == nil {
		return 0
	}
	var e Error
	if errors.As(err, &e) {
		return e.Code()
	}
	return ErrUnknown.Code()
}

// Errors collects failures from operations that must proceed past
// individual errors (closing every backend, unmounting every device).
type Errors struct {
	mu     sync.RWMutex
	errors []error
}

func (e *Errors) Add(err error) {
	if err == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.errors = append(e.errors, err)
}

func (e *Errors) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.errors = make([]error, 0)
}

// First returns the earliest collected error or nil.
func (e *Errors) First() error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if len(e.errors) == 0 {
		return nil
	}

	return e.errors[0]
}

func (e *Errors) Errors() error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if len(e.errors) == 0 {
		return nil
	}

	return errors.Join(e.errors...)
}
