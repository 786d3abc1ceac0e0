// Package consul provides a storage on top of the HashiCorp Consul KV store.
package consul

import (
	"context"
	"strings"
	"sync"

	"github.com/hashicorp/consul/api"
	"github.com/mwantia/xila/data"
	"github.com/mwantia/xila/storage"
)

var _ storage.Storage = (*ConsulStorage)(nil)

// ConsulStorage lays nodes out under a configurable prefix:
//
//	<prefix>nodes/<path>  JSON encoded metadata
//	<prefix>data/<inode>  raw content
//	<prefix>inode         last assigned inode
//
// Limitations:
// - Consul KV has a 512KB limit per value
// - Best suited for configuration files, small assets, and metadata storage
type ConsulStorage struct {
	mu     sync.RWMutex
	client *api.Client
	kv     *api.KV

	config *ConsulStorageConfig
}

// ConsulStorageConfig contains configuration options for the Consul storage
type ConsulStorageConfig struct {
	// Address of the Consul server (default: "127.0.0.1:8500")
	Address string

	// Token for Consul ACL authentication (optional)
	Token string

	// Datacenter to use (optional)
	Datacenter string

	// Namespace for Consul Enterprise (optional)
	Namespace string

	// Prefix for all keys in Consul KV (default: "xila/")
	Prefix string
}

// NewConsulStorage creates a new Consul-backed storage
func NewConsulStorage(config *ConsulStorageConfig) (*ConsulStorage, error) {
	if config == nil {
		config = &ConsulStorageConfig{}
	}

	// Set defaults
	if config.Address == "" {
		config.Address = "127.0.0.1:8500"
	}
	if config.Prefix == "" {
		config.Prefix = "xila/"
	}
	if !strings.HasSuffix(config.Prefix, "/") {
		config.Prefix += "/"
	}

	// Create Consul client
	clientConfig := api.DefaultConfig()
	clientConfig.Address = config.Address
	if config.Token != "" {
		clientConfig.Token = config.Token
	}
	if config.Datacenter != "" {
		clientConfig.Datacenter = config.Datacenter
	}
	if config.Namespace != "" {
		clientConfig.Namespace = config.Namespace
	}

	client, err := api.NewClient(clientConfig)
	if err != nil {
		return nil, storage.Wrap(err, "create consul client")
	}

	return &ConsulStorage{
		client: client,
		kv:     client.KV(),
		config: config,
	}, nil
}

// Name returns the identifier name defined for this storage
func (*ConsulStorage) Name() string {
	return "consul"
}

// Open is part of the lifecycle behaviour and gets called when mounting.
func (cs *ConsulStorage) Open(ctx context.Context) error {
	// Verify the agent is reachable before accepting the mount
	if _, err := cs.client.Status().Leader(); err != nil {
		return storage.Wrap(err, "reach consul")
	}
	return nil
}

// Close is part of the lifecycle behaviour and gets called when unmounting.
func (cs *ConsulStorage) Close(ctx context.Context) error {
	// Nothing to clean up - Consul client is stateless
	return nil
}

// GetCapabilities returns what this storage supports.
func (cs *ConsulStorage) GetCapabilities() *storage.Capabilities {
	return &storage.Capabilities{
		Capabilities: []storage.Capability{
			storage.CapabilityMetadata,
			storage.CapabilityObjectStorage,
			storage.CapabilityPersistent,
		},
		// Consul KV has a default limit of 512KB per value
		MaxObjectSize: 500 * 1024,
	}
}

func (cs *ConsulStorage) nodeKey(key string) string {
	return cs.config.Prefix + "nodes" + key
}

func (cs *ConsulStorage) dataKey(inode data.Inode) string {
	return cs.config.Prefix + "data/" + inodeString(inode)
}

func (cs *ConsulStorage) counterKey() string {
	return cs.config.Prefix + "inode"
}

// pathOf converts a consul node key back into a storage key.
func (cs *ConsulStorage) pathOf(consulKey string) string {
	key := strings.TrimPrefix(consulKey, cs.config.Prefix+"nodes")
	if key != storage.RootKey {
		key = strings.TrimSuffix(key, "/")
	}
	return key
}

func queryOptions(ctx context.Context) *api.QueryOptions {
	return (&api.QueryOptions{}).WithContext(ctx)
}

func writeOptions(ctx context.Context) *api.WriteOptions {
	return (&api.WriteOptions{}).WithContext(ctx)
}

// Purge deletes every key below the configured prefix.
func (cs *ConsulStorage) Purge(ctx context.Context) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	_, err := cs.kv.DeleteTree(cs.config.Prefix, writeOptions(ctx))
	return storage.Wrap(err, "purge prefix")
}
