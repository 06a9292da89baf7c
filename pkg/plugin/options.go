package plugin

import (
	"os"
	"time"
)

// Option helpers read provider configuration maps. Values decoded from YAML or
// environment variables arrive as strings, ints or float64s, so each helper
// accepts the shapes it can convert and otherwise returns def.

// String returns cfg[key] as a string.
func String(cfg map[string]any, key, def string) string {
	if v, ok := cfg[key].(string); ok && v != "" {
		return v
	}
	return def
}

// StringOrEnv returns cfg[key], then the environment variable env, then def.
func StringOrEnv(cfg map[string]any, key, env, def string) string {
	if v := String(cfg, key, ""); v != "" {
		return v
	}
	if v := os.Getenv(env); v != "" {
		return v
	}
	return def
}

// Float returns cfg[key] as a float64.
func Float(cfg map[string]any, key string, def float64) float64 {
	switch v := cfg[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return def
}

// Int returns cfg[key] as an int.
func Int(cfg map[string]any, key string, def int) int {
	switch v := cfg[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

// Bool returns cfg[key] as a bool.
func Bool(cfg map[string]any, key string, def bool) bool {
	if v, ok := cfg[key].(bool); ok {
		return v
	}
	return def
}

// Duration returns cfg[key] as a duration. Strings use time.ParseDuration;
// bare numbers are milliseconds.
func Duration(cfg map[string]any, key string, def time.Duration) time.Duration {
	switch v := cfg[key].(type) {
	case time.Duration:
		return v
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	case int:
		return time.Duration(v) * time.Millisecond
	case float64:
		return time.Duration(v * float64(time.Millisecond))
	}
	return def
}
