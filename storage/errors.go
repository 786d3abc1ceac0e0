package storage

import (
	"errors"
	"fmt"

	"github.com/mwantia/xila/data"
)

// Wrap tags a driver failure as an input/output error while keeping the
// driver message. Taxonomy errors are returned unchanged.
func Wrap(err error, operation string) error {
	if err == nil {
		return nil
	}

	var taxonomy data.Error
	if errors.As(err, &taxonomy) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", data.ErrInputOutput, operation, err)
}
