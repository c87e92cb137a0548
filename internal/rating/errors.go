package rating

import "fmt"

// InvalidConfigurationError is returned when aggregation is invoked
// with a configuration that fails validation. Aggregation performs no
// writes in that case.
type InvalidConfigurationError struct {
	Err error
}

func (e InvalidConfigurationError) Error() string {
	return fmt.Sprintf("invalid rating configuration: %v", e.Err)
}

func (e InvalidConfigurationError) Unwrap() error {
	return e.Err
}
