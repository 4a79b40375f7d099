package registry

import (
	"context"
	"fmt"

	"github.com/MrSnakeDoc/marksync/internal/domain"
	"github.com/MrSnakeDoc/marksync/internal/logger"
)

// Authorize checks dev is listed in the remote roster. An empty roster, or
// a device still absent after a second confirmatory pull, yields
// domain.ErrUnauthorized. Transport failures are returned as they are and
// never mean "unauthorized".
//
// With Policy.SkipIfUnnamed an unknown device is let through unchecked.
func (r *Registry) Authorize(ctx context.Context, dev domain.Device) error {
	if r.policy.SkipIfUnnamed && domain.IsUnknownDevice(dev) {
		r.logger.Warn("skipping authorization for unnamed device",
			logger.String("device_id", dev.ID))
		return nil
	}

	const attempts = 2
	for attempt := 1; attempt <= attempts; attempt++ {
		devices, err := r.pullDevices(ctx)
		if err != nil {
			return err
		}
		if len(devices) == 0 {
			r.logger.Warn("remote device list is empty",
				logger.String("device_id", dev.ID))
			return fmt.Errorf("%w: remote device list is empty", domain.ErrUnauthorized)
		}
		if domain.ContainsDevice(devices, dev.ID) {
			return nil
		}
		r.logger.Debug("device not found in remote roster",
			logger.String("device_id", dev.ID),
			logger.Int("attempt", attempt))
	}

	r.logger.Warn("device is not in the remote device list",
		logger.String("device_id", dev.ID),
		logger.String("device_name", dev.Name))
	return fmt.Errorf("%w: device %s is not in the remote device list", domain.ErrUnauthorized, dev.ID)
}

// pullDevices reads the remote roster and mirrors it locally.
func (r *Registry) pullDevices(ctx context.Context) ([]domain.Device, error) {
	remote, err := r.remote.ReadSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to pull device list: %w", err)
	}
	var devices []domain.Device
	if remote != nil {
		devices = remote.Devices
	}
	if err := r.store.SaveDevices(ctx, devices); err != nil {
		return nil, err
	}
	return devices, nil
}
