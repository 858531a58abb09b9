package domain

// ActionType describes one (marketplace, code) action: display metadata plus
// the defaults applied to jobs created without explicit overrides. Shared,
// read-mostly reference data.
type ActionType struct {
	Marketplace       string `db:"marketplace"`
	Code              string `db:"code"`
	DisplayName       string `db:"display_name"`
	DefaultPriority   int    `db:"default_priority"`
	DefaultMaxRetries int    `db:"default_max_retries"`
	RateLimitPerMin   int    `db:"rate_limit_per_min"`
}
