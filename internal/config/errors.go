package config

import (
	"ratingd/pkg/fault"
)

// loadError wraps failures from the file or env providers.
func loadError(err error) error {
	return fault.Wrap(fault.External, err, "load config failed")
}

// invalidError reports a config value the service cannot run with.
func invalidError(msg string) error {
	return fault.New(fault.Validation, "invalid config: %s", msg)
}
