package data

import "fmt"

// Whence selects the origin of a Position.
type Whence uint8

const (
	WhenceStart Whence = iota
	WhenceCurrent
	WhenceEnd
)

// Position is a seek target: Start(u64), Current(i64) or End(i64).
type Position struct {
	Whence Whence
	// Absolute is the target of a Start position.
	Absolute uint64
	// Offset is the signed distance of Current and End positions.
	Offset int64
}

func Start(offset uint64) Position  { return Position{Whence: WhenceStart, Absolute: offset} }
func Current(offset int64) Position { return Position{Whence: WhenceCurrent, Offset: offset} }
func End(offset int64) Position     { return Position{Whence: WhenceEnd, Offset: offset} }

// Resolve computes the absolute offset relative to the current cursor and the
// total size. Results below zero or past the uint64 range are rejected.
func (p Position) Resolve(current, size uint64) (uint64, error) {
	var base uint64
	switch p.Whence {
	case WhenceStart:
		return p.Absolute, nil
	case WhenceCurrent:
		base = current
	case WhenceEnd:
		base = size
	default:
		return 0, ErrInvalidParameter
	}

	if p.Offset < 0 {
		distance := uint64(-(p.Offset + 1)) + 1
		if distance > base {
			return 0, ErrInvalidParameter
		}
		return base - distance, nil
	}

	target := base + uint64(p.Offset)
	if target < base {
		return 0, ErrInvalidParameter
	}
	return target, nil
}

func (p Position) String() string {
	switch p.Whence {
	case WhenceStart:
		return fmt.Sprintf("Start(%d)", p.Absolute)
	case WhenceCurrent:
		return fmt.Sprintf("Current(%d)", p.Offset)
	default:
		return fmt.Sprintf("End(%d)", p.Offset)
	}
}
