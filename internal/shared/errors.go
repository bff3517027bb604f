package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Migration errors
	ErrMigrationGap    = fmt.Errorf("migration sequence gap")
	ErrInvalidTarget   = fmt.Errorf("invalid rollback target")
	ErrMigrationFailed = fmt.Errorf("migration failed")

	// Repository errors
	ErrDuplicateGenre  = fmt.Errorf("genre already exists")
	ErrGenreNotFound   = fmt.Errorf("genre not found")
	ErrNegativeSeconds = fmt.Errorf("negative listening time")
	ErrNoSession       = fmt.Errorf("no stored session")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrRefreshFailed    = fmt.Errorf("token refresh failed")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrSamplerUnavailable = fmt.Errorf("playback sampler unavailable")

	// Input validation errors
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
