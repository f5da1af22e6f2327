package models

import "errors"

var (
	ErrStorageConnection = errors.New("storage connection error")
	ErrStorageGet        = errors.New("storage get error")
	ErrStorageSet        = errors.New("storage set error")
	ErrStorageDelete     = errors.New("storage delete error")
	ErrSnapshotNotFound  = errors.New("session snapshot not found")
	ErrSnapshotMalformed = errors.New("session snapshot malformed")
)

var (
	ErrSessionExpired   = errors.New("session token expired")
	ErrSessionChanged   = errors.New("session changed during operation")
	ErrNotAuthenticated = errors.New("session not authenticated")
)

var (
	ErrPermissionDenied   = errors.New("notification permission denied")
	ErrNotPhysicalDevice  = errors.New("push requires a physical device")
	ErrNoDeviceToken      = errors.New("no device push token available")
	ErrRegistrationFailed = errors.New("push token registration failed")
	ErrBrokerUnavailable  = errors.New("notification broker unavailable")
)

var (
	ErrNotConnected = errors.New("realtime connection not established")
	ErrMissingToken = errors.New("auth token required before connect")
)

var (
	ErrBackendUnavailable = errors.New("backend service unavailable")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidOTP         = errors.New("invalid verification code")
)
