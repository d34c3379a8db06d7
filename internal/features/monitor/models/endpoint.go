package models

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	ErrEndpointNotFound = errors.New("endpoint not found")
	ErrAlertNotFound    = errors.New("alert not found")
)

// DefaultExpectedStatusCode is used when an endpoint does not set one
const DefaultExpectedStatusCode = http.StatusOK

// SupportedMethods lists the HTTP methods a probe may issue
var SupportedMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodDelete:  true,
	http.MethodPatch:   true,
	http.MethodHead:    true,
	http.MethodOptions: true,
}

// Endpoint is the definition of one monitored API target
type Endpoint struct {
	ID                 string            `json:"id" yaml:"id"`
	Name               string            `json:"name" yaml:"name"`
	URL                string            `json:"url" yaml:"url"`
	Method             string            `json:"method" yaml:"method"`
	ExpectedStatusCode int               `json:"expected_status_code" yaml:"expected_status_code"`
	Headers            map[string]string `json:"headers,omitempty" yaml:"headers"`
	TimeoutMs          int64             `json:"timeout_ms" yaml:"timeout_ms"`
	IntervalMs         int64             `json:"check_interval_ms" yaml:"check_interval_ms"`
	CreatedAt          time.Time         `json:"created_at" yaml:"-"`
	UpdatedAt          time.Time         `json:"updated_at" yaml:"-"`
}

// Timeout returns the per-check timeout
func (e Endpoint) Timeout() time.Duration {
	return time.Duration(e.TimeoutMs) * time.Millisecond
}

// Interval returns the time between scheduled checks
func (e Endpoint) Interval() time.Duration {
	return time.Duration(e.IntervalMs) * time.Millisecond
}

// Clone returns a copy that shares no mutable state with e
func (e Endpoint) Clone() Endpoint {
	if e.Headers != nil {
		headers := make(map[string]string, len(e.Headers))
		for k, v := range e.Headers {
			headers[k] = v
		}
		e.Headers = headers
	}
	return e
}

// Validate checks the definition is complete and probe-able
func (e Endpoint) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if err := validateURL(e.URL); err != nil {
		return err
	}
	if !SupportedMethods[e.Method] {
		return fmt.Errorf("unsupported method %q", e.Method)
	}
	if e.ExpectedStatusCode < 100 || e.ExpectedStatusCode > 599 {
		return fmt.Errorf("expected status code %d is not a valid HTTP status", e.ExpectedStatusCode)
	}
	if e.TimeoutMs <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if e.IntervalMs <= 0 {
		return fmt.Errorf("check interval must be positive")
	}
	return nil
}

func validateURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("url must include a host")
	}
	return nil
}

// EndpointCreate is the input for adding an endpoint
type EndpointCreate struct {
	Name               string            `json:"name" yaml:"name"`
	URL                string            `json:"url" yaml:"url"`
	Method             string            `json:"method" yaml:"method"`
	ExpectedStatusCode int               `json:"expected_status_code" yaml:"expected_status_code"`
	Headers            map[string]string `json:"headers" yaml:"headers"`
	TimeoutMs          int64             `json:"timeout_ms" yaml:"timeout_ms"`
	IntervalMs         int64             `json:"check_interval_ms" yaml:"check_interval_ms"`
}

// Defaults holds values applied to fields a caller leaves empty
type Defaults struct {
	Timeout  time.Duration
	Interval time.Duration
}

// ToEndpoint builds an endpoint definition, applying defaults to empty fields
func (c EndpointCreate) ToEndpoint(id string, now time.Time, d Defaults) Endpoint {
	e := Endpoint{
		ID:                 id,
		Name:               strings.TrimSpace(c.Name),
		URL:                strings.TrimSpace(c.URL),
		Method:             strings.ToUpper(strings.TrimSpace(c.Method)),
		ExpectedStatusCode: c.ExpectedStatusCode,
		Headers:            c.Headers,
		TimeoutMs:          c.TimeoutMs,
		IntervalMs:         c.IntervalMs,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if e.Method == "" {
		e.Method = http.MethodGet
	}
	if e.ExpectedStatusCode == 0 {
		e.ExpectedStatusCode = DefaultExpectedStatusCode
	}
	if e.TimeoutMs == 0 {
		e.TimeoutMs = d.Timeout.Milliseconds()
	}
	if e.IntervalMs == 0 {
		e.IntervalMs = d.Interval.Milliseconds()
	}
	if e.Headers == nil {
		e.Headers = map[string]string{}
	}
	return e
}

// EndpointUpdate carries a partial change; nil fields are left untouched
type EndpointUpdate struct {
	Name               *string            `json:"name,omitempty"`
	URL                *string            `json:"url,omitempty"`
	Method             *string            `json:"method,omitempty"`
	ExpectedStatusCode *int               `json:"expected_status_code,omitempty"`
	Headers            *map[string]string `json:"headers,omitempty"`
	TimeoutMs          *int64             `json:"timeout_ms,omitempty"`
	IntervalMs         *int64             `json:"check_interval_ms,omitempty"`
}

// Apply returns a copy of e with the update applied
func (u EndpointUpdate) Apply(e Endpoint, now time.Time) Endpoint {
	e = e.Clone()
	if u.Name != nil {
		e.Name = strings.TrimSpace(*u.Name)
	}
	if u.URL != nil {
		e.URL = strings.TrimSpace(*u.URL)
	}
	if u.Method != nil {
		e.Method = strings.ToUpper(strings.TrimSpace(*u.Method))
	}
	if u.ExpectedStatusCode != nil {
		e.ExpectedStatusCode = *u.ExpectedStatusCode
	}
	if u.Headers != nil {
		e.Headers = *u.Headers
	}
	if u.TimeoutMs != nil {
		e.TimeoutMs = *u.TimeoutMs
	}
	if u.IntervalMs != nil {
		e.IntervalMs = *u.IntervalMs
	}
	e.UpdatedAt = now
	return e
}
