package config

import (
	"fmt"
	"net/url"
	"strings"

	"conductor/internal/api"
	"conductor/internal/composer"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   val,
		Message: message,
	})
}

// ValidateOneOf checks if a value is in a list of allowed values
func ValidateOneOf(field, value string, allowed []string) error {
	for _, allowedValue := range allowed {
		if value == allowedValue {
			return nil
		}
	}
	return ValidationError{
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")),
	}
}

// Validate checks the configuration and returns all problems at once.
func (c Config) Validate() error {
	var errs ValidationErrors

	if c.Remote.BaseURL == "" {
		errs.Add("remote.baseURL", "is required")
	} else if u, err := url.Parse(c.Remote.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs.Add("remote.baseURL", "must be an absolute URL", c.Remote.BaseURL)
	}
	if c.Remote.Timeout < 0 {
		errs.Add("remote.timeout", "must not be negative", c.Remote.Timeout)
	}

	if c.Retry.Interval < 0 {
		errs.Add("retry.interval", "must not be negative", c.Retry.Interval)
	}
	for i, o := range c.Retry.Overrides {
		field := fmt.Sprintf("retry.overrides[%d]", i)
		if _, err := api.ParseServiceKind(o.Kind); err != nil {
			errs.Add(field+".kind", err.Error(), o.Kind)
		}
		if o.Transition != "" {
			if err := ValidateOneOf(field+".transition", strings.ToUpper(o.Transition), []string{"START", "STOP", "DELETE"}); err != nil {
				errs = append(errs, err.(ValidationError))
			}
		}
		if o.MaxRetries < 0 {
			errs.Add(field+".maxRetries", "must not be negative", o.MaxRetries)
		}
		if o.Interval < 0 {
			errs.Add(field+".interval", "must not be negative", o.Interval)
		}
	}

	if _, err := composer.ParseContinuationPolicy(c.Composer.ContinuationPolicy); err != nil {
		errs.Add("composer.continuationPolicy", err.Error(), c.Composer.ContinuationPolicy)
	}
	if c.Composer.MaxConcurrency < 0 {
		errs.Add("composer.maxConcurrency", "must not be negative", c.Composer.MaxConcurrency)
	}

	if c.Events.NATS.URL != "" && c.Events.NATS.Subject == "" {
		errs.Add("events.nats.subject", "is required when events.nats.url is set")
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}
