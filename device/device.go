// Package device defines the byte-addressable endpoint contract behind device
// nodes, plus a handful of stock devices.
package device

import (
	"github.com/mwantia/xila/data"
)

// Device is a byte-addressable read/write/seek endpoint. Implementations
// must be safe for concurrent use: the device backend releases its own lock
// before calling into a device.
type Device interface {
	// Read fills p and returns the number of bytes read. Zero means no data
	// is available right now.
	Read(p []byte) (int, error)

	Write(p []byte) (int, error)

	// SetPosition moves the cursor and returns the new absolute position.
	SetPosition(position data.Position) (uint64, error)

	// Size returns the total bytes, or the logical capacity for block devices.
	Size() (uint64, error)

	Flush() error

	// Erase clears the device; devices that cannot return
	// data.ErrUnsupportedOperation.
	Erase() error

	IsBlock() bool

	BlockSize() (uint32, error)

	IsTerminal() bool
}

// FileType maps a device to the node type used for its device node.
func FileType(d Device) data.FileType {
	if d.IsBlock() {
		return data.FileTypeBlockDevice
	}
	return data.FileTypeCharacterDevice
}

// CharacterBase provides the non-seekable, non-block defaults shared by
// character devices.
type CharacterBase struct{}

func (CharacterBase) SetPosition(data.Position) (uint64, error) { return 0, nil }
func (CharacterBase) Size() (uint64, error)                     { return 0, nil }
func (CharacterBase) Flush() error                              { return nil }
func (CharacterBase) Erase() error                              { return data.ErrUnsupportedOperation }
func (CharacterBase) IsBlock() bool                             { return false }
func (CharacterBase) BlockSize() (uint32, error)                { return 0, data.ErrUnsupportedOperation }
func (CharacterBase) IsTerminal() bool                          { return false }
