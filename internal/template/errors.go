package template

import "fmt"

// ConfigurationError reports a template whose metadata cannot back an index.
// It is distinct from a field simply not being mapped.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("template: configuration: %s", e.Reason)
}
