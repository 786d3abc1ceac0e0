package data

// Permission is a single {read, write, execute} triad.
type Permission uint8

const (
	PermissionExecute Permission = 1 << 0
	PermissionWrite   Permission = 1 << 1
	PermissionRead    Permission = 1 << 2

	PermissionNone      Permission = 0
	PermissionReadWrite            = PermissionRead | PermissionWrite
	PermissionFull                 = PermissionRead | PermissionWrite | PermissionExecute

	permissionMask Permission = PermissionFull
)

func NewPermission(read, write, execute bool) Permission {
	var p Permission
	if read {
		p |= PermissionRead
	}
	if write {
		p |= PermissionWrite
	}
	if execute {
		p |= PermissionExecute
	}
	return p
}

func (p Permission) Read() bool    { return p&PermissionRead != 0 }
func (p Permission) Write() bool   { return p&PermissionWrite != 0 }
func (p Permission) Execute() bool { return p&PermissionExecute != 0 }

// Include reports whether every bit of other is present in p.
func (p Permission) Include(other Permission) bool {
	return p&other == other
}

func (p Permission) String() string {
	buf := []byte("---")
	if p.Read() {
		buf[0] = 'r'
	}
	if p.Write() {
		buf[1] = 'w'
	}
	if p.Execute() {
		buf[2] = 'x'
	}
	return string(buf)
}

// Special holds the sticky, set-user and set-group bits.
type Special uint8

const (
	SpecialSticky   Special = 1 << 0
	SpecialSetGroup Special = 1 << 1
	SpecialSetUser  Special = 1 << 2

	SpecialNone Special = 0

	specialMask Special = SpecialSticky | SpecialSetGroup | SpecialSetUser
)

func (s Special) Sticky() bool   { return s&SpecialSticky != 0 }
func (s Special) SetGroup() bool { return s&SpecialSetGroup != 0 }
func (s Special) SetUser() bool  { return s&SpecialSetUser != 0 }

// Permissions packs the user, group and other triads in bits 0-8 and the
// special bits in 9-11, serialized as a 12-bit unsigned value.
type Permissions uint16

const (
	otherShift   = 0
	groupShift   = 3
	userShift    = 6
	specialShift = 9

	permissionsMask Permissions = 0o7777
)

func NewPermissions(user, group, other Permission, special Special) Permissions {
	return Permissions(user&permissionMask)<<userShift |
		Permissions(group&permissionMask)<<groupShift |
		Permissions(other&permissionMask)<<otherShift |
		Permissions(special&specialMask)<<specialShift
}

// PermissionsFromOctal validates a raw value such as 0o644.
func PermissionsFromOctal(bits uint16) (Permissions, error) {
	p := Permissions(bits)
	if p&^permissionsMask != 0 {
		return 0, ErrInvalidParameter
	}
	return p, nil
}

func (p Permissions) Bits() uint16 { return uint16(p) }

func (p Permissions) User() Permission  { return Permission(p>>userShift) & permissionMask }
func (p Permissions) Group() Permission { return Permission(p>>groupShift) & permissionMask }
func (p Permissions) Other() Permission { return Permission(p>>otherShift) & permissionMask }
func (p Permissions) Special() Special  { return Special(p>>specialShift) & specialMask }

func (p Permissions) WithUser(u Permission) Permissions {
	return NewPermissions(u, p.Group(), p.Other(), p.Special())
}

func (p Permissions) WithGroup(g Permission) Permissions {
	return NewPermissions(p.User(), g, p.Other(), p.Special())
}

func (p Permissions) WithOther(o Permission) Permissions {
	return NewPermissions(p.User(), p.Group(), o, p.Special())
}

func (p Permissions) WithSpecial(s Special) Permissions {
	return NewPermissions(p.User(), p.Group(), p.Other(), s)
}

func (p Permissions) String() string {
	return p.User().String() + p.Group().String() + p.Other().String()
}

var (
	PermissionsDirectory       = NewPermissions(PermissionFull, PermissionRead|PermissionExecute, PermissionRead|PermissionExecute, SpecialNone)
	PermissionsFile            = NewPermissions(PermissionReadWrite, PermissionRead, PermissionRead, SpecialNone)
	PermissionsPipe            = NewPermissions(PermissionReadWrite, PermissionNone, PermissionNone, SpecialNone)
	PermissionsBlockDevice     = NewPermissions(PermissionFull, PermissionReadWrite, PermissionReadWrite, SpecialNone)
	PermissionsCharacterDevice = NewPermissions(PermissionReadWrite, PermissionReadWrite, PermissionNone, SpecialNone)
	PermissionsSocket          = NewPermissions(PermissionReadWrite, PermissionReadWrite, PermissionReadWrite, SpecialNone)
	PermissionsSymbolicLink    = NewPermissions(PermissionFull, PermissionFull, PermissionFull, SpecialNone)
)

// DefaultPermissions returns the permissions given to a node of type t when
// it is created without explicit permissions.
func DefaultPermissions(t FileType) Permissions {
	switch t {
	case FileTypeDirectory:
		return PermissionsDirectory
	case FileTypePipe:
		return PermissionsPipe
	case FileTypeBlockDevice:
		return PermissionsBlockDevice
	case FileTypeCharacterDevice:
		return PermissionsCharacterDevice
	case FileTypeSocket:
		return PermissionsSocket
	case FileTypeSymbolicLink:
		return PermissionsSymbolicLink
	default:
		return PermissionsFile
	}
}
