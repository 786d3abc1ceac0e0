package boot

import (
	"fmt"
	"io"

	"github.com/mwantia/xila/config"
	"github.com/mwantia/xila/device"
)

// newDevice creates the device of an entry. The returned closer is non-nil
// for devices holding host resources.
func (s *System) newDevice(d config.DeviceConfig) (device.Device, io.Closer, error) {
	var (
		dev    device.Device
		closer io.Closer
	)

	switch d.Type {
	case config.DeviceNull:
		dev = device.NewNull()
	case config.DeviceZero:
		dev = device.NewZero()
	case config.DeviceRandom:
		dev = device.NewRandom()
	case config.DeviceConsole:
		dev = device.NewStream(s.options.ConsoleInput, s.options.ConsoleOutput)
	case config.DeviceMemory:
		dev = device.NewMemory(d.Size)
	case config.DeviceFile:
		file, err := device.OpenFile(d.Image, d.Size)
		if err != nil {
			return nil, nil, err
		}
		dev, closer = file, file
	default:
		return nil, nil, fmt.Errorf("%w: unknown device type '%s'", config.ErrInvalidConfig, d.Type)
	}

	if d.Partition != nil {
		dev = device.NewPartition(dev, d.Partition.Offset, d.Partition.Size)
	}
	return dev, closer, nil
}
