package device

import (
	"crypto/rand"

	"github.com/mwantia/xila/data"
)

// Null discards writes and reads nothing.
type Null struct {
	CharacterBase
}

func NewNull() *Null { return &Null{} }

func (*Null) Read(p []byte) (int, error)  { return 0, nil }
func (*Null) Write(p []byte) (int, error) { return len(p), nil }

// Zero reads endless zero bytes and discards writes.
type Zero struct {
	CharacterBase
}

func NewZero() *Zero { return &Zero{} }

func (*Zero) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}

func (*Zero) Write(p []byte) (int, error) { return len(p), nil }

// Random reads cryptographically random bytes. Writes are accepted and
// ignored.
type Random struct {
	CharacterBase
}

func NewRandom() *Random { return &Random{} }

func (*Random) Read(p []byte) (int, error) {
	n, err := rand.Read(p)
	if err != nil {
		return n, data.ErrInputOutput
	}
	return n, nil
}

func (*Random) Write(p []byte) (int, error) { return len(p), nil }
