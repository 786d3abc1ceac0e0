package consul

import (
	"context"

	"github.com/mwantia/xila/data"
)

func (cs *ConsulStorage) ReadData(ctx context.Context, inode data.Inode, offset uint64, p []byte) (int, error) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	content, err := cs.readContentUnsafe(ctx, inode)
	if err != nil {
		return 0, err
	}

	if offset >= uint64(len(content)) {
		return 0, nil
	}
	return copy(p, content[offset:]), nil
}

func (cs *ConsulStorage) WriteData(ctx context.Context, inode data.Inode, offset uint64, p []byte) (int, error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	content, err := cs.readContentUnsafe(ctx, inode)
	if err != nil {
		return 0, err
	}

	end := offset + uint64(len(p))
	if end > uint64(len(content)) {
		grown := make([]byte, end)
		copy(grown, content)
		content = grown
	}
	copy(content[offset:], p)

	if err := cs.writeContentUnsafe(ctx, inode, content); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (cs *ConsulStorage) TruncateData(ctx context.Context, inode data.Inode, size uint64) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	content, err := cs.readContentUnsafe(ctx, inode)
	if err != nil {
		return err
	}

	resized := make([]byte, size)
	copy(resized, content)
	return cs.writeContentUnsafe(ctx, inode, resized)
}
