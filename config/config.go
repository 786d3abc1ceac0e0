// Package config loads the description of a system: logging, users, the
// file systems to mount and the devices to register.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mwantia/xila/data"
	"github.com/mwantia/xila/log"
	"github.com/mwantia/xila/users"
	"github.com/spf13/viper"
)

// Mount types.
const (
	MountMemory   = "memory"
	MountSQLite   = "sqlite"
	MountPostgres = "postgres"
	MountConsul   = "consul"
	MountS3       = "s3"
)

// Device types.
const (
	DeviceNull    = "null"
	DeviceZero    = "zero"
	DeviceRandom  = "random"
	DeviceMemory  = "memory"
	DeviceFile    = "file"
	DeviceConsole = "console"
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

type Config struct {
	Log     LogConfig      `mapstructure:"log"`
	Users   []users.User   `mapstructure:"users"`
	Groups  []users.Group  `mapstructure:"groups"`
	Mounts  []MountConfig  `mapstructure:"mounts"`
	Devices []DeviceConfig `mapstructure:"devices"`
	Pipe    PipeConfig     `mapstructure:"pipe"`
	Tasks   TaskConfig     `mapstructure:"tasks"`
	Shell   ShellConfig    `mapstructure:"shell"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	JSON       bool   `mapstructure:"json"`
	NoTerminal bool   `mapstructure:"no_terminal"`
}

// MountConfig describes one mounted file system. Options are specific to
// the storage type, e.g. "path" for sqlite or "bucket" for s3.
type MountConfig struct {
	Path     string            `mapstructure:"path"`
	Type     string            `mapstructure:"type"`
	ReadOnly bool              `mapstructure:"read_only"`
	Options  map[string]string `mapstructure:"options"`
}

type DeviceConfig struct {
	Path string `mapstructure:"path"`
	Type string `mapstructure:"type"`

	// Size of memory devices, or the minimum size of file images.
	Size uint64 `mapstructure:"size"`
	// Image is the host file backing a file device.
	Image string `mapstructure:"image"`

	// Partition restricts the device to a window of its bytes.
	Partition *PartitionConfig `mapstructure:"partition"`
}

type PartitionConfig struct {
	Offset uint64 `mapstructure:"offset"`
	Size   uint64 `mapstructure:"size"`
}

type PipeConfig struct {
	DefaultSize int `mapstructure:"default_size"`
}

type TaskConfig struct {
	Spawners    int               `mapstructure:"spawners"`
	Environment map[string]string `mapstructure:"environment"`
}

// ShellConfig names the paths opened as standard streams of the shell.
type ShellConfig struct {
	Input  string `mapstructure:"input"`
	Output string `mapstructure:"output"`
	Error  string `mapstructure:"error"`
	Prompt string `mapstructure:"prompt"`
}

// Load reads file, or looks for xila.{yaml,toml,json} in the usual places
// when file is empty. A missing default file is no error. Every key can be
// overridden with an XILA_ prefixed environment variable.
func Load(file string) (*Config, error) {
	v := viper.New()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("xila")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.xila")
		v.AddConfigPath("/etc/xila")
	}

	setDefaults(v)

	v.SetEnvPrefix("XILA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return Decode(v)
}

// Decode unmarshals an already populated viper instance.
func Decode(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if len(config.Mounts) == 0 {
		config.Mounts = DefaultMounts()
	}
	if len(config.Devices) == 0 {
		config.Devices = DefaultDevices()
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.json", false)
	v.SetDefault("log.no_terminal", false)

	v.SetDefault("pipe.default_size", 512)
	v.SetDefault("tasks.spawners", 1)

	v.SetDefault("shell.input", "/devices/console")
	v.SetDefault("shell.output", "/devices/console")
	v.SetDefault("shell.error", "/devices/console")
	v.SetDefault("shell.prompt", "$ ")
}

// Default returns the configuration used when nothing is configured.
func Default() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	return Decode(v)
}

// DefaultMounts is a single memory file system at the root.
func DefaultMounts() []MountConfig {
	return []MountConfig{
		{Path: data.Separator, Type: MountMemory},
	}
}

// DefaultDevices are the character devices every system carries.
func DefaultDevices() []DeviceConfig {
	return []DeviceConfig{
		{Path: "/devices/null", Type: DeviceNull},
		{Path: "/devices/zero", Type: DeviceZero},
		{Path: "/devices/random", Type: DeviceRandom},
		{Path: "/devices/console", Type: DeviceConsole},
	}
}

func (c *Config) Validate() error {
	var errs data.Errors

	if _, err := log.Parse(c.Log.Level); err != nil {
		errs.Add(fmt.Errorf("%w: log level '%s'", ErrInvalidConfig, c.Log.Level))
	}
	if c.Pipe.DefaultSize < 0 {
		errs.Add(fmt.Errorf("%w: negative pipe size", ErrInvalidConfig))
	}
	if c.Tasks.Spawners < 1 {
		errs.Add(fmt.Errorf("%w: at least one spawner is required", ErrInvalidConfig))
	}

	mounted := make(map[string]bool, len(c.Mounts))
	for _, m := range c.Mounts {
		if !isAbsolute(m.Path) {
			errs.Add(fmt.Errorf("%w: mount path '%s' is not absolute", ErrInvalidConfig, m.Path))
		}
		if mounted[m.Path] {
			errs.Add(fmt.Errorf("%w: '%s' is mounted twice", ErrInvalidConfig, m.Path))
		}
		mounted[m.Path] = true

		switch m.Type {
		case MountMemory, MountSQLite, MountPostgres, MountConsul, MountS3:
		default:
			errs.Add(fmt.Errorf("%w: unknown mount type '%s'", ErrInvalidConfig, m.Type))
		}
	}

	for _, d := range c.Devices {
		if !isAbsolute(d.Path) {
			errs.Add(fmt.Errorf("%w: device path '%s' is not absolute", ErrInvalidConfig, d.Path))
		}

		switch d.Type {
		case DeviceNull, DeviceZero, DeviceRandom, DeviceConsole:
		case DeviceMemory:
			if d.Size == 0 {
				errs.Add(fmt.Errorf("%w: memory device '%s' needs a size", ErrInvalidConfig, d.Path))
			}
		case DeviceFile:
			if d.Image == "" {
				errs.Add(fmt.Errorf("%w: file device '%s' needs an image", ErrInvalidConfig, d.Path))
			}
		default:
			errs.Add(fmt.Errorf("%w: unknown device type '%s'", ErrInvalidConfig, d.Type))
		}

		if d.Partition != nil && d.Partition.Size == 0 {
			errs.Add(fmt.Errorf("%w: partition of '%s' needs a size", ErrInvalidConfig, d.Path))
		}
	}

	for _, path := range []string{c.Shell.Input, c.Shell.Output, c.Shell.Error} {
		if !isAbsolute(path) {
			errs.Add(fmt.Errorf("%w: shell stream '%s' is not absolute", ErrInvalidConfig, path))
		}
	}

	return errs.Errors()
}

func isAbsolute(path string) bool {
	p, err := data.NewPath(path)
	return err == nil && p.IsAbsolute()
}
