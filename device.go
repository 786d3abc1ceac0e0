package vfs

import (
	"context"

	"github.com/mwantia/xila/backend/devices"
	"github.com/mwantia/xila/data"
	"github.com/mwantia/xila/device"
)

// MountDevice exposes dev at path. Only root may add device nodes.
func (v *VirtualFileSystem) MountDevice(ctx context.Context, task data.TaskIdentifier, path data.Path, dev device.Device) error {
	path, err := clean(path)
	if err != nil {
		return err
	}

	caller, err := v.getCredentials(task)
	if err != nil {
		return err
	}
	if !caller.isRoot() {
		return data.ErrPermissionDenied
	}

	if exists, err := v.Exists(ctx, path); err != nil {
		return err
	} else if exists {
		return data.ErrAlreadyExists
	}

	if err := v.checkParentDirectory(ctx, path); err != nil {
		return err
	}

	if _, err := v.devices.MountDevice(ctx, path, dev); err != nil {
		return err
	}

	v.log.Info("mounted %s device at '%s'", device.FileType(dev), path)
	return nil
}

// MountStaticDevice is MountDevice for device paths known at compile time.
func (v *VirtualFileSystem) MountStaticDevice(ctx context.Context, task data.TaskIdentifier, path string, dev device.Device) error {
	return v.MountDevice(ctx, task, data.MustPath(path), dev)
}

// UnmountDevice removes the device node at path and returns the device. It
// fails while the device is open.
func (v *VirtualFileSystem) UnmountDevice(ctx context.Context, task data.TaskIdentifier, path data.Path) (device.Device, error) {
	path, err := clean(path)
	if err != nil {
		return nil, err
	}

	caller, err := v.getCredentials(task)
	if err != nil {
		return nil, err
	}
	if !caller.isRoot() {
		return nil, data.ErrPermissionDenied
	}

	return v.devices.UnmountDevice(ctx, path)
}

// GetDevices lists the device nodes below prefix.
func (v *VirtualFileSystem) GetDevices(prefix data.Path) []devices.Entry {
	return v.devices.GetDevicesFromPath(prefix)
}
