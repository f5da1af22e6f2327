package push

import "context"

// PermissionStatus is the device's notification permission state.
type PermissionStatus string

const (
	PermissionGranted      PermissionStatus = "granted"
	PermissionDenied       PermissionStatus = "denied"
	PermissionUndetermined PermissionStatus = "undetermined"
)

// Platform is the boundary to the device notification services: channel
// setup, permission prompts and push token issuance. Every call can fail
// independently and every failure is non-fatal to the session.
type Platform interface {
	// EnsureChannel creates the notification channel if the platform
	// requires one. Idempotent.
	EnsureChannel(ctx context.Context, name string) error
	// Permissions returns the current permission state without prompting.
	Permissions(ctx context.Context) (PermissionStatus, error)
	// RequestPermissions prompts the user and returns the resulting state.
	RequestPermissions(ctx context.Context) (PermissionStatus, error)
	// IsPhysicalDevice reports whether the device qualifies for push.
	IsPhysicalDevice() bool
	// DeviceToken obtains a push-capable token from the platform service.
	DeviceToken(ctx context.Context) (string, error)
}

// DevPlatform is the development stand-in: permission auto-granted, a fixed
// device token, always a physical device.
type DevPlatform struct {
	Token string
}

func (p DevPlatform) EnsureChannel(ctx context.Context, name string) error { return nil }

func (p DevPlatform) Permissions(ctx context.Context) (PermissionStatus, error) {
	return PermissionGranted, nil
}

func (p DevPlatform) RequestPermissions(ctx context.Context) (PermissionStatus, error) {
	return PermissionGranted, nil
}

func (p DevPlatform) IsPhysicalDevice() bool { return true }

func (p DevPlatform) DeviceToken(ctx context.Context) (string, error) {
	if p.Token != "" {
		return p.Token, nil
	}
	return "dev-device-token", nil
}
