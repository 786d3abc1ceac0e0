package storage

import "slices"

type Capability string

const (
	CapabilityMetadata      Capability = "metadata"
	CapabilityObjectStorage Capability = "object_storage"

	// CapabilityPersistent marks storages whose nodes survive a restart.
	CapabilityPersistent Capability = "persistent"
	// CapabilityTransactions marks storages moving whole trees atomically.
	CapabilityTransactions Capability = "transactions"
)

// Capabilities describes what a storage supports
type Capabilities struct {
	Capabilities  []Capability `json:"capabilities"`
	MaxObjectSize uint64       `json:"max_object_size"`
}

// Contains checks if a capability is supported
func (c *Capabilities) Contains(capability Capability) bool {
	return slices.Contains(c.Capabilities, capability)
}

// Fits reports whether content of size bytes may be stored.
func (c *Capabilities) Fits(size uint64) bool {
	return c.MaxObjectSize == 0 || size <= c.MaxObjectSize
}
