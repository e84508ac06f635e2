package flagx

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvString overwrites *dst with the value of key when it is set and non-empty.
func EnvString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

// EnvInt overwrites *dst when key holds a valid integer.
func EnvInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			*dst = n
		}
	}
}

// EnvBool overwrites *dst when key holds a value strconv.ParseBool accepts.
func EnvBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			*dst = b
		}
	}
}

// EnvDuration accepts either a Go duration ("10s") or a bare number of seconds.
func EnvDuration(dst *time.Duration, key string) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	v = strings.TrimSpace(v)
	if d, err := time.ParseDuration(v); err == nil {
		*dst = d
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = time.Duration(n) * time.Second
	}
}
