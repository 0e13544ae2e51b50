// Package settings implements the monitoring settings registry. Every
// setting is declared with an explicit kind and validated range; updates
// are checked atomically so a single bad value rejects the whole request.
package settings

import (
	"fmt"
	"math"
	"sync"
)

// Setting kinds.
type Kind string

const (
	KindToggle  Kind = "toggle"
	KindNumeric Kind = "numeric"
)

// Definition declares one setting: its kind, default, and (for numerics)
// the validated inclusive range.
type Definition struct {
	Key     string `json:"key"`
	Label   string `json:"label"`
	Kind    Kind   `json:"kind"`
	Default any    `json:"default"`
	Min     int    `json:"min,omitempty"`
	Max     int    `json:"max,omitempty"`
}

// The monitoring settings schema.
var schema = []Definition{
	{Key: "real_time_monitoring", Label: "Real-Time Monitoring", Kind: KindToggle, Default: true},
	{Key: "alert_notifications", Label: "Alert Notifications", Kind: KindToggle, Default: true},
	{Key: "auto_threat_response", Label: "Automatic Threat Response", Kind: KindToggle, Default: false},
	{Key: "data_retention_days", Label: "Data Retention (days)", Kind: KindNumeric, Default: 30, Min: 1, Max: 365},
	{Key: "scan_interval_seconds", Label: "Scan Interval (seconds)", Kind: KindNumeric, Default: 5, Min: 1, Max: 60},
	{Key: "max_flows_per_second", Label: "Max Flows per Second", Kind: KindNumeric, Default: 1000, Min: 10, Max: 100000},
	{Key: "enable_logging", Label: "Enable Logging", Kind: KindToggle, Default: true},
	{Key: "send_reports", Label: "Send Reports", Kind: KindToggle, Default: false},
}

// Registry holds the current setting values.
type Registry struct {
	mu     sync.RWMutex
	defs   map[string]Definition
	values map[string]any
}

// NewRegistry creates a registry with every setting at its default.
func NewRegistry() *Registry {
	defs := make(map[string]Definition, len(schema))
	values := make(map[string]any, len(schema))
	for _, d := range schema {
		defs[d.Key] = d
		values[d.Key] = d.Default
	}
	return &Registry{defs: defs, values: values}
}

// Definitions returns the declared schema in stable order.
func (r *Registry) Definitions() []Definition {
	out := make([]Definition, len(schema))
	copy(out, schema)
	return out
}

// Values returns a copy of the current settings.
func (r *Registry) Values() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]any, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// Toggle returns the value of a toggle setting.
func (r *Registry) Toggle(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, _ := r.values[key].(bool)
	return v
}

// Numeric returns the value of a numeric setting.
func (r *Registry) Numeric(key string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	switch v := r.values[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

// Update validates and applies a set of changes. Unknown keys, wrong
// kinds, and out-of-range values reject the entire update.
func (r *Registry) Update(changes map[string]any) error {
	validated := make(map[string]any, len(changes))

	for key, raw := range changes {
		def, ok := r.defs[key]
		if !ok {
			return fmt.Errorf("unknown setting %q", key)
		}

		switch def.Kind {
		case KindToggle:
			b, ok := raw.(bool)
			if !ok {
				return fmt.Errorf("setting %q expects a boolean", key)
			}
			validated[key] = b

		case KindNumeric:
			n, err := asInt(raw)
			if err != nil {
				return fmt.Errorf("setting %q expects an integer: %v", key, err)
			}
			if n < def.Min || n > def.Max {
				return fmt.Errorf("setting %q must be between %d and %d", key, def.Min, def.Max)
			}
			validated[key] = n
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range validated {
		r.values[k] = v
	}
	return nil
}

// asInt accepts the numeric representations JSON decoding produces.
func asInt(raw any) (int, error) {
	switch v := raw.(type) {
	case int:
		return v, nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("got %v", v)
		}
		return int(v), nil
	default:
		return 0, fmt.Errorf("got %T", raw)
	}
}
