package data

import "encoding/binary"

// StatisticsSize is the byte length of the fixed statistics layout.
const StatisticsSize = 64

// Statistics is the record returned by get_statistics.
type Statistics struct {
	FileSystem       FileSystemIdentifier
	Inode            Inode
	Links            uint64
	Size             uint64
	AccessTime       Time
	ModificationTime Time
	ChangeTime       Time
	Type             FileType
	Permissions      Permissions
	User             UserIdentifier
	Group            GroupIdentifier
}

// NewStatistics builds a record from node metadata.
func NewStatistics(fs FileSystemIdentifier, metadata Metadata, size uint64) Statistics {
	return Statistics{
		FileSystem:       fs,
		Inode:            metadata.Inode,
		Links:            metadata.Links,
		Size:             size,
		AccessTime:       metadata.AccessTime,
		ModificationTime: metadata.ModificationTime,
		ChangeTime:       metadata.ChangeTime,
		Type:             metadata.Type,
		Permissions:      metadata.Permissions,
		User:             metadata.User,
		Group:            metadata.Group,
	}
}

// MarshalBinary encodes the record using the little-endian, naturally aligned
// layout shared with foreign callers:
//
//	0  file system (u16)   8  inode (u64)      16 links (u64)
//	24 size (u64)          32 access (u64)     40 modification (u64)
//	48 change (u64)        56 type (u8)        58 permissions (u16)
//	60 user (u16)          62 group (u16)
func (s Statistics) MarshalBinary() ([]byte, error) {
	buf := make([]byte, StatisticsSize)
	le := binary.LittleEndian

	le.PutUint16(buf[0:], uint16(s.FileSystem))
	le.PutUint64(buf[8:], uint64(s.Inode))
	le.PutUint64(buf[16:], s.Links)
	le.PutUint64(buf[24:], s.Size)
	le.PutUint64(buf[32:], uint64(s.AccessTime))
	le.PutUint64(buf[40:], uint64(s.ModificationTime))
	le.PutUint64(buf[48:], uint64(s.ChangeTime))
	buf[56] = byte(s.Type)
	le.PutUint16(buf[58:], uint16(s.Permissions))
	le.PutUint16(buf[60:], uint16(s.User))
	le.PutUint16(buf[62:], uint16(s.Group))

	return buf, nil
}

func (s *Statistics) UnmarshalBinary(buf []byte) error {
	if len(buf) < StatisticsSize {
		return ErrInvalidParameter
	}
	le := binary.LittleEndian

	s.FileSystem = FileSystemIdentifier(le.Uint16(buf[0:]))
	s.Inode = Inode(le.Uint64(buf[8:]))
	s.Links = le.Uint64(buf[16:])
	s.Size = le.Uint64(buf[24:])
	s.AccessTime = Time(le.Uint64(buf[32:]))
	s.ModificationTime = Time(le.Uint64(buf[40:]))
	s.ChangeTime = Time(le.Uint64(buf[48:]))
	s.Type = FileType(buf[56])
	s.Permissions = Permissions(le.Uint16(buf[58:]))
	s.User = UserIdentifier(le.Uint16(buf[60:]))
	s.Group = GroupIdentifier(le.Uint16(buf[62:]))

	if !s.Type.IsValid() {
		return ErrCorrupted
	}
	return nil
}
