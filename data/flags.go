package data

import "strings"

// Mode is the access-mode part of the open flags (bits 0-1).
type Mode uint8

const (
	ModeRead  Mode = 1 << 0
	ModeWrite Mode = 1 << 1

	ModeReadWrite = ModeRead | ModeWrite

	modeMask Mode = ModeRead | ModeWrite
)

func NewMode(read, write bool) Mode {
	var m Mode
	if read {
		m |= ModeRead
	}
	if write {
		m |= ModeWrite
	}
	return m
}

func (m Mode) CanRead() bool  { return m&ModeRead != 0 }
func (m Mode) CanWrite() bool { return m&ModeWrite != 0 }

// IsValid reports whether at least one access bit is set and no unknown bit.
func (m Mode) IsValid() bool {
	return m != 0 && m&^modeMask == 0
}

func (m Mode) String() string {
	switch {
	case m.CanRead() && m.CanWrite():
		return "rw"
	case m.CanRead():
		return "r"
	case m.CanWrite():
		return "w"
	default:
		return "-"
	}
}

// Open holds the creation flags (bits 2-4 of the packed flags).
type Open uint8

const (
	OpenCreate    Open = 1 << 0
	OpenExclusive Open = 1 << 1
	OpenTruncate  Open = 1 << 2

	OpenNone Open = 0

	openMask Open = OpenCreate | OpenExclusive | OpenTruncate
)

func NewOpen(create, exclusive, truncate bool) Open {
	var o Open
	if create {
		o |= OpenCreate
	}
	if exclusive {
		o |= OpenExclusive
	}
	if truncate {
		o |= OpenTruncate
	}
	return o
}

func (o Open) Create() bool    { return o&OpenCreate != 0 }
func (o Open) Exclusive() bool { return o&OpenExclusive != 0 }
func (o Open) Truncate() bool  { return o&OpenTruncate != 0 }

// Status holds the status flags (bits 5-8 of the packed flags).
type Status uint8

const (
	StatusAppend              Status = 1 << 0
	StatusNonBlocking         Status = 1 << 1
	StatusSynchronous         Status = 1 << 2
	StatusSynchronousDataOnly Status = 1 << 3

	StatusNone Status = 0

	statusMask Status = StatusAppend | StatusNonBlocking | StatusSynchronous | StatusSynchronousDataOnly
)

func NewStatus(appendMode, nonBlocking, synchronous, synchronousDataOnly bool) Status {
	var s Status
	if appendMode {
		s |= StatusAppend
	}
	if nonBlocking {
		s |= StatusNonBlocking
	}
	if synchronous {
		s |= StatusSynchronous
	}
	if synchronousDataOnly {
		s |= StatusSynchronousDataOnly
	}
	return s
}

func (s Status) Append() bool              { return s&StatusAppend != 0 }
func (s Status) NonBlocking() bool         { return s&StatusNonBlocking != 0 }
func (s Status) Synchronous() bool         { return s&StatusSynchronous != 0 }
func (s Status) SynchronousDataOnly() bool { return s&StatusSynchronousDataOnly != 0 }

// Flags packs Mode, Open and Status into 16 bits. The layout is stable
// across the ABI: access in bits 0-1, creation in 2-4, status in 5-8.
type Flags uint16

const (
	modeShift   = 0
	openShift   = 2
	statusShift = 5

	flagsMask Flags = Flags(modeMask)<<modeShift | Flags(openMask)<<openShift | Flags(statusMask)<<statusShift
)

// NewFlags packs the three sub-fields.
func NewFlags(mode Mode, open Open, status Status) Flags {
	return Flags(mode&modeMask)<<modeShift |
		Flags(open&openMask)<<openShift |
		Flags(status&statusMask)<<statusShift
}

// FlagsFromBits validates a raw packed value coming from outside.
func FlagsFromBits(bits uint16) (Flags, error) {
	f := Flags(bits)
	if f&^flagsMask != 0 {
		return 0, ErrInvalidFlags
	}
	return f, nil
}

func (f Flags) Bits() uint16 { return uint16(f) }

func (f Flags) Mode() Mode     { return Mode(f>>modeShift) & modeMask }
func (f Flags) Open() Open     { return Open(f>>openShift) & openMask }
func (f Flags) Status() Status { return Status(f>>statusShift) & statusMask }

func (f Flags) WithMode(m Mode) Flags     { return NewFlags(m, f.Open(), f.Status()) }
func (f Flags) WithOpen(o Open) Flags     { return NewFlags(f.Mode(), o, f.Status()) }
func (f Flags) WithStatus(s Status) Flags { return NewFlags(f.Mode(), f.Open(), s) }

// IsPermissionGranted reports whether an open with these flags only needs
// the access contained in p: reading requires the read bit, writing requires
// the write mode or append.
func (f Flags) IsPermissionGranted(p Permission) bool {
	mode := f.Mode()
	if p.Read() && !mode.CanRead() {
		return false
	}
	if p.Write() && !(mode.CanWrite() || f.Status().Append()) {
		return false
	}
	return true
}

// RequiredPermission is the permission an open with these flags needs on the
// target file.
func (f Flags) RequiredPermission() Permission {
	var p Permission
	if f.Mode().CanRead() {
		p |= PermissionRead
	}
	if f.Mode().CanWrite() || f.Status().Append() || f.Open().Truncate() {
		p |= PermissionWrite
	}
	return p
}

func (f Flags) String() string {
	var b strings.Builder
	b.WriteString(f.Mode().String())
	o := f.Open()
	if o.Create() {
		b.WriteString("|create")
	}
	if o.Exclusive() {
		b.WriteString("|exclusive")
	}
	if o.Truncate() {
		b.WriteString("|truncate")
	}
	s := f.Status()
	if s.Append() {
		b.WriteString("|append")
	}
	if s.NonBlocking() {
		b.WriteString("|nonblocking")
	}
	if s.Synchronous() {
		b.WriteString("|sync")
	}
	if s.SynchronousDataOnly() {
		b.WriteString("|dsync")
	}
	return b.String()
}
