// Package registry owns the device identity and the shared device roster,
// and decides whether this device may sync.
package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/marksync/internal/domain"
	"github.com/MrSnakeDoc/marksync/internal/logger"
	"github.com/MrSnakeDoc/marksync/internal/store"
)

// Remote is the part of the remote store the registry needs.
type Remote interface {
	ReadSettings(ctx context.Context) (*domain.RemoteSettings, error)
	WriteSettings(ctx context.Context, settings domain.RemoteSettings) error
}

// Policy tunes the authorization check.
type Policy struct {
	// SkipIfUnnamed lets a device without a usable name sync without being
	// found in the roster. It avoids false "unauthorized" wipes when naming
	// fails, at the cost of never validating such devices.
	SkipIfUnnamed bool
}

// Registry caches the registration result for the lifetime of the process.
type Registry struct {
	store  store.Local
	remote Remote
	logger logger.Logger
	policy Policy

	now    func() time.Time
	nameFn func() string
	newID  func() string

	mu     sync.Mutex
	device *domain.Device // set after the first successful EnsureRegistered
}

// Option customizes a Registry.
type Option func(*Registry)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithDeviceName overrides the platform-derived device name.
func WithDeviceName(fn func() string) Option {
	return func(r *Registry) { r.nameFn = fn }
}

// WithIDGenerator overrides the random device id.
func WithIDGenerator(fn func() string) Option {
	return func(r *Registry) { r.newID = fn }
}

// New creates a registry.
func New(st store.Local, remote Remote, log logger.Logger, policy Policy, opts ...Option) *Registry {
	r := &Registry{
		store:  st,
		remote: remote,
		logger: log,
		policy: policy,
		now:    time.Now,
		nameFn: PlatformName,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// EnsureRegistered returns this install's device. On first use it creates
// the identity, adds it to the roster and pushes the settings bundle; the
// identity is only persisted once that push succeeds. An existing identity
// is returned as is: whether it may still sync is for Authorize to decide,
// so a device removed from the roster cannot put itself back here. The
// result is memoized once it succeeds.
func (r *Registry) EnsureRegistered(ctx context.Context) (domain.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.device != nil {
		return *r.device, nil
	}

	existing, err := r.store.GetDeviceInfo(ctx)
	if err != nil {
		return domain.Device{}, err
	}
	if existing != nil {
		dev := *existing
		r.device = &dev
		return dev, nil
	}

	dev, err := r.register(ctx)
	if err != nil {
		return domain.Device{}, err
	}
	r.device = &dev
	return dev, nil
}

// register creates a new identity and publishes it in the roster.
func (r *Registry) register(ctx context.Context) (domain.Device, error) {
	name := r.nameFn()
	if name == "" {
		name = domain.UnknownDeviceName
	}
	now := r.now().UTC()
	dev := domain.Device{
		ID:        r.newID(),
		Name:      name,
		CreatedAt: now,
		LastSeen:  now,
	}

	// Refresh the mirror first so the push below cannot drop devices
	// registered elsewhere.
	if err := r.PullSettings(ctx); err != nil {
		r.logger.Warn("settings pull before registration failed",
			logger.String("device_id", dev.ID),
			logger.Error(err))
	}

	previous, err := r.store.GetDevices(ctx)
	if err != nil {
		return domain.Device{}, err
	}
	devices := append(append([]domain.Device(nil), previous...), dev)
	if err := r.store.SaveDevices(ctx, devices); err != nil {
		return domain.Device{}, err
	}

	if err := r.pushSettings(ctx, &dev); err != nil {
		if rbErr := r.store.SaveDevices(ctx, previous); rbErr != nil {
			r.logger.Error("failed to roll back device list",
				logger.String("device_id", dev.ID),
				logger.Error(rbErr))
		}
		return domain.Device{}, fmt.Errorf("failed to publish device registration: %w", err)
	}

	if err := r.store.SaveDeviceInfo(ctx, dev); err != nil {
		return domain.Device{}, err
	}

	r.logger.Info("device registered",
		logger.String("device_id", dev.ID),
		logger.String("device_name", dev.Name))
	return dev, nil
}

// EnsureInCloud reconciles this device against the remote roster, which is
// the source of truth: the device is added when missing, otherwise only its
// name and lastSeen are refreshed. The result is pushed back.
func (r *Registry) EnsureInCloud(ctx context.Context) (domain.Device, error) {
	dev, err := r.EnsureRegistered(ctx)
	if err != nil {
		return domain.Device{}, err
	}

	remote, err := r.remote.ReadSettings(ctx)
	if err != nil {
		return domain.Device{}, fmt.Errorf("failed to pull settings: %w", err)
	}
	if remote != nil {
		if err := r.applySettings(ctx, remote); err != nil {
			return domain.Device{}, err
		}
	}

	devices, err := r.store.GetDevices(ctx)
	if err != nil {
		return domain.Device{}, err
	}

	dev.LastSeen = r.now().UTC()
	if name := r.nameFn(); name != "" {
		dev.Name = name
	}

	if i := domain.IndexDevice(devices, dev.ID); i >= 0 {
		devices[i].Name = dev.Name
		devices[i].LastSeen = dev.LastSeen
	} else {
		devices = append(devices, dev)
		r.logger.Info("device missing from remote roster, re-adding",
			logger.String("device_id", dev.ID))
	}

	if err := r.saveIdentity(ctx, dev, devices); err != nil {
		return domain.Device{}, err
	}
	if err := r.PushSettings(ctx); err != nil {
		return domain.Device{}, err
	}
	return dev, nil
}

// Touch records that dev was just seen, locally and in the roster, then
// pushes settings.
func (r *Registry) Touch(ctx context.Context, dev domain.Device) (domain.Device, error) {
	dev.LastSeen = r.now().UTC()

	devices, err := r.store.GetDevices(ctx)
	if err != nil {
		return dev, err
	}
	if i := domain.IndexDevice(devices, dev.ID); i >= 0 {
		devices[i].LastSeen = dev.LastSeen
	}

	if err := r.saveIdentity(ctx, dev, devices); err != nil {
		return dev, err
	}
	if err := r.PushSettings(ctx); err != nil {
		return dev, err
	}
	return dev, nil
}

func (r *Registry) saveIdentity(ctx context.Context, dev domain.Device, devices []domain.Device) error {
	if err := r.store.SaveDeviceInfo(ctx, dev); err != nil {
		return err
	}
	if err := r.store.SaveDevices(ctx, devices); err != nil {
		return err
	}

	r.mu.Lock()
	if r.device != nil && r.device.ID == dev.ID {
		r.device = &dev
	}
	r.mu.Unlock()
	return nil
}

// Devices returns the local mirror of the roster.
func (r *Registry) Devices(ctx context.Context) ([]domain.Device, error) {
	return r.store.GetDevices(ctx)
}

// SaveDevices replaces the roster locally and remotely. Removing a device
// here revokes its authorization on its next sync.
func (r *Registry) SaveDevices(ctx context.Context, devices []domain.Device) error {
	if err := r.store.SaveDevices(ctx, devices); err != nil {
		return err
	}
	return r.PushSettings(ctx)
}
