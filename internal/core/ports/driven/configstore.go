package driven

// ConfigStore is a flat key/value view of the settings file.
// Keys are dot-separated ("cache.ttl_seconds"). Typed getters return the
// zero value when a key is missing or holds another type, so callers fall
// back to defaults with a single check.
type ConfigStore interface {
	// Get returns the raw value and whether the key is present.
	Get(key string) (any, bool)

	GetString(key string) string
	GetInt(key string) int

	// GetFloat converts integer values as well.
	GetFloat(key string) float64

	GetBool(key string) bool

	// GetStringSlice returns nil for a missing key.
	GetStringSlice(key string) []string

	// Set stores value under key and writes the store through.
	Set(key string, value any) error

	Save() error
	Load() error

	// Path is the backing file, or a placeholder for in-memory stores.
	Path() string
}
