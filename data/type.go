package data

// FileType identifies the kind of node behind a path or handle.
type FileType uint8

const (
	FileTypeFile FileType = iota + 1
	FileTypeDirectory
	FileTypePipe
	FileTypeBlockDevice
	FileTypeCharacterDevice
	FileTypeSocket
	FileTypeSymbolicLink
)

func (t FileType) String() string {
	switch t {
	case FileTypeFile:
		return "file"
	case FileTypeDirectory:
		return "directory"
	case FileTypePipe:
		return "pipe"
	case FileTypeBlockDevice:
		return "block-device"
	case FileTypeCharacterDevice:
		return "character-device"
	case FileTypeSocket:
		return "socket"
	case FileTypeSymbolicLink:
		return "symbolic-link"
	default:
		return "unknown"
	}
}

// Letter returns the ls-style type character.
func (t FileType) Letter() byte {
	switch t {
	case FileTypeDirectory:
		return 'd'
	case FileTypePipe:
		return 'p'
	case FileTypeBlockDevice:
		return 'b'
	case FileTypeCharacterDevice:
		return 'c'
	case FileTypeSocket:
		return 's'
	case FileTypeSymbolicLink:
		return 'l'
	default:
		return '-'
	}
}

func (t FileType) IsValid() bool {
	return t >= FileTypeFile && t <= FileTypeSymbolicLink
}
