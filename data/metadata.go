package data

// Metadata describes a node independently of any open handle.
type Metadata struct {
	Inode            Inode           `json:"inode"`
	Type             FileType        `json:"type"`
	Permissions      Permissions     `json:"permissions"`
	User             UserIdentifier  `json:"user"`
	Group            GroupIdentifier `json:"group"`
	Links            uint64          `json:"links"`
	AccessTime       Time            `json:"access_time"`
	ModificationTime Time            `json:"modification_time"`
	ChangeTime       Time            `json:"change_time"`
	CreationTime     Time            `json:"creation_time"`
}

// NewMetadata creates metadata for a freshly created node with the default
// permissions of its type and all timestamps set to now.
func NewMetadata(inode Inode, fileType FileType, now Time, user UserIdentifier, group GroupIdentifier) Metadata {
	return Metadata{
		Inode:            inode,
		Type:             fileType,
		Permissions:      DefaultPermissions(fileType),
		User:             user,
		Group:            group,
		Links:            1,
		AccessTime:       now,
		ModificationTime: now,
		ChangeTime:       now,
		CreationTime:     now,
	}
}

// Owner returns the owning user and group.
func (m Metadata) Owner() (UserIdentifier, GroupIdentifier) {
	return m.User, m.Group
}

// Touch records an access, and a modification when modified is set.
func (m *Metadata) Touch(now Time, modified bool) {
	m.AccessTime = now
	if modified {
		m.ModificationTime = now
		m.ChangeTime = now
	}
}

// Entry is one record returned while reading a directory.
type Entry struct {
	Inode Inode
	Name  string
	Type  FileType
	Size  uint64
}
