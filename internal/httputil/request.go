package httputil

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// IntParam parses an integer query parameter, returning def when absent. A
// present but non-numeric value is an error so bad input surfaces as a
// validation failure rather than being silently replaced.
func IntParam(r *http.Request, name string, def int) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("parameter %q must be an integer", name)
	}
	return v, nil
}

// IntParamInRange parses an integer query parameter and enforces inclusive
// bounds.
func IntParamInRange(r *http.Request, name string, def, min, max int) (int, error) {
	v, err := IntParam(r, name, def)
	if err != nil {
		return 0, err
	}
	if v < min || v > max {
		return 0, fmt.Errorf("parameter %q must be between %d and %d", name, min, max)
	}
	return v, nil
}

// GetClientIP extracts the client address, preferring proxy headers over the
// raw connection address.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
