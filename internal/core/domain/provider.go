package domain

import "time"

type ProviderID string

// WindowUnit names the accounting interval for a provider rate limit.
type WindowUnit string

const (
	WindowSecond WindowUnit = "second"
	WindowMinute WindowUnit = "minute"
	WindowHour   WindowUnit = "hour"
	WindowDay    WindowUnit = "day"
	WindowMonth  WindowUnit = "month"
)

// Duration converts a window unit to its time.Duration. Months are
// approximated as 30 days.
func (u WindowUnit) Duration() time.Duration {
	switch u {
	case WindowSecond:
		return time.Second
	case WindowMinute:
		return time.Minute
	case WindowHour:
		return time.Hour
	case WindowDay:
		return 24 * time.Hour
	case WindowMonth:
		return 30 * 24 * time.Hour
	default:
		return time.Minute
	}
}

// ProviderConfig holds the static configuration for one upstream data
// provider. Registered once at startup and read-only afterwards.
type ProviderConfig struct {
	ID                ProviderID
	RequestsPerWindow int
	Window            time.Duration
	MaxConcurrent     int
	Fallbacks         []ProviderID
	DefaultTimeout    time.Duration
	DefaultCacheTTL   time.Duration
}
