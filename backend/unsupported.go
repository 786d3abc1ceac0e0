package backend

import (
	"context"

	"github.com/mwantia/xila/data"
)

// NoDirectories can be embedded by backends without a directory hierarchy.
// Every directory operation fails with data.ErrUnsupportedOperation.
type NoDirectories struct{}

func (NoDirectories) CreateDirectory(context.Context, data.Path, data.Time, data.UserIdentifier, data.GroupIdentifier) error {
	return data.ErrUnsupportedOperation
}

func (NoDirectories) OpenDirectory(context.Context, data.TaskIdentifier, data.Path) (data.LocalFileIdentifier, error) {
	return data.LocalFileIdentifier{}, data.ErrUnsupportedOperation
}

func (NoDirectories) ReadDirectory(context.Context, data.LocalFileIdentifier) (*data.Entry, error) {
	return nil, data.ErrUnsupportedOperation
}

func (NoDirectories) SetPositionDirectory(context.Context, data.LocalFileIdentifier, uint64) error {
	return data.ErrUnsupportedOperation
}

func (NoDirectories) GetPositionDirectory(context.Context, data.LocalFileIdentifier) (uint64, error) {
	return 0, data.ErrUnsupportedOperation
}

func (NoDirectories) RewindDirectory(context.Context, data.LocalFileIdentifier) error {
	return data.ErrUnsupportedOperation
}

func (NoDirectories) CloseDirectory(context.Context, data.LocalFileIdentifier) error {
	return data.ErrUnsupportedOperation
}
