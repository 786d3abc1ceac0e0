package storage

import (
	"strings"

	"github.com/mwantia/xila/data"
	"github.com/tidwall/btree"
)

// RootKey names the root node of every storage.
const RootKey = "/"

// ParentKey returns the key of the parent node; the root is its own parent.
func ParentKey(key string) string {
	index := strings.LastIndex(key, "/")
	if index <= 0 {
		return RootKey
	}
	return key[:index]
}

// ChildPrefix returns the string every descendant key of key starts with.
func ChildPrefix(key string) string {
	if key == RootKey {
		return RootKey
	}
	return key + "/"
}

// IsChild reports whether candidate is a direct child of key.
func IsChild(key, candidate string) bool {
	prefix := ChildPrefix(key)
	rest, found := strings.CutPrefix(candidate, prefix)
	return found && rest != "" && !strings.Contains(rest, "/")
}

// IsDescendant reports whether candidate lies below key.
func IsDescendant(key, candidate string) bool {
	return candidate != key && strings.HasPrefix(candidate, ChildPrefix(key))
}

// Rebase moves key from below source to below destination.
func Rebase(key, source, destination string) string {
	if key == source {
		return destination
	}
	return strings.TrimSuffix(destination, "/") + "/" + strings.TrimPrefix(key, ChildPrefix(source))
}

// Children returns the direct children of key in an ordered key index.
func Children[V any](index *btree.Map[string, V], key string) []string {
	prefix := ChildPrefix(key)
	children := make([]string, 0)
	index.Ascend(prefix, func(candidate string, _ V) bool {
		if !strings.HasPrefix(candidate, prefix) {
			return false
		}
		if IsChild(key, candidate) {
			children = append(children, candidate)
		}
		return true
	})
	return children
}

// Subtree returns key and every key below it in an ordered key index.
func Subtree[V any](index *btree.Map[string, V], key string) []string {
	keys := make([]string, 0)
	if _, exists := index.Get(key); exists {
		keys = append(keys, key)
	}

	prefix := ChildPrefix(key)
	index.Ascend(prefix, func(candidate string, _ V) bool {
		if !strings.HasPrefix(candidate, prefix) {
			return false
		}
		if candidate != key {
			keys = append(keys, candidate)
		}
		return true
	})
	return keys
}

// CheckMove validates a move of source to destination in index.
func CheckMove[V any](index *btree.Map[string, V], source, destination string) error {
	if _, exists := index.Get(source); !exists {
		return data.ErrNotFound
	}
	if _, exists := index.Get(destination); exists {
		return data.ErrAlreadyExists
	}
	if source == RootKey || IsDescendant(source, destination) {
		return data.ErrInvalidParameter
	}
	return nil
}
