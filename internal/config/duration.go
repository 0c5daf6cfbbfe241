package config

import (
	"fmt"
	"time"
)

// Duration wraps time.Duration so YAML can express it as "60s" rather
// than a raw nanosecond count — yaml.v2 has no built-in support for
// time.Duration's string form.
type Duration time.Duration

// AsDuration converts back to a time.Duration for use with the standard
// library and third-party APIs that expect one.
func (d Duration) AsDuration() time.Duration {
	return time.Duration(d)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err == nil {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("parse duration %q: %w", raw, err)
		}
		*d = Duration(parsed)
		return nil
	}

	var nanos int64
	if err := unmarshal(&nanos); err != nil {
		return fmt.Errorf("duration must be a string like \"60s\" or an integer nanosecond count: %w", err)
	}
	*d = Duration(nanos)
	return nil
}
