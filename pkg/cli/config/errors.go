package config

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors for configuration validation
var (
	ErrConfigNotFound          = goerr.New("configuration file not found")
	ErrInvalidConfig           = goerr.New("invalid configuration")
	ErrDuplicateOrganization   = goerr.New("duplicate organization route")
	ErrInvalidOrganizationID   = goerr.New("invalid organization ID")
	ErrMissingChannel          = goerr.New("channel is required")
	ErrInvalidNotificationType = goerr.New("invalid notification type")
	ErrInvalidInterval         = goerr.New("invalid interval")
)

// Context keys for error values
const (
	ConfigPathKey       = "config_path"
	OrganizationIDKey   = "organization_id"
	NotificationTypeKey = "notification_type"
	RouteIndexKey       = "route_index"
	IntervalKey         = "interval"
)
