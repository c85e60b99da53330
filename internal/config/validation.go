package config

import (
	"fmt"
	"net/url"
	"strings"

	"testplan/pkg/logging"
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

// ValidateRequired checks if a required string field is not empty
func ValidateRequired(field, value, entityType string) error {
	if strings.TrimSpace(value) == "" {
		return ValidationError{
			Field:   field,
			Value:   value,
			Message: fmt.Sprintf("is required for %s", entityType),
		}
	}
	return nil
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

// Validate checks the whole configuration and reports every problem at once.
func (c Config) Validate() error {
	var errs ValidationErrors

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs.Add("server.port", "must be between 1 and 65535", c.Server.Port)
	}
	if c.Server.ReadHeaderTimeout < 0 {
		errs.Add("server.readHeaderTimeout", "must not be negative", c.Server.ReadHeaderTimeout)
	}
	if c.Server.ShutdownTimeout < 0 {
		errs.Add("server.shutdownTimeout", "must not be negative", c.Server.ShutdownTimeout)
	}

	if c.Remote.OrganizationURL != "" {
		u, err := url.Parse(c.Remote.OrganizationURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs.Add("remote.organizationURL", "must be an absolute http(s) URL", c.Remote.OrganizationURL)
		}
	}
	if err := ValidateRequired("remote.apiVersion", c.Remote.APIVersion, "the remote service"); err != nil {
		errs = append(errs, err.(ValidationError))
	}
	if c.Remote.RequestTimeout <= 0 {
		errs.Add("remote.requestTimeout", "must be positive", c.Remote.RequestTimeout)
	}
	if c.Remote.RetrySteps < 1 {
		errs.Add("remote.retrySteps", "must be at least 1", c.Remote.RetrySteps)
	}
	if c.Remote.RetryInitialBackoff < 0 {
		errs.Add("remote.retryInitialBackoff", "must not be negative", c.Remote.RetryInitialBackoff)
	}

	if c.Imports.MaxConcurrent < 1 {
		errs.Add("imports.maxConcurrent", "must be at least 1", c.Imports.MaxConcurrent)
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs.Add("logging.level", err.Error(), c.Logging.Level)
	}
	if c.Logging.Format != "" {
		if err := ValidateOneOf("logging.format", c.Logging.Format, []string{string(logging.FormatText), string(logging.FormatJSON)}); err != nil {
			errs = append(errs, err.(ValidationError))
		}
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}
