package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

// Error codes returned to API callers.
const (
	CodeTimeout                = "AI_TIMEOUT"
	CodeRateLimit              = "AI_RATE_LIMIT"
	CodeModelNotFound          = "AI_MODEL_NOT_FOUND"
	CodeModelUnavailable       = "AI_MODEL_UNAVAILABLE"
	CodeUpstreamUnavailable    = "AI_UPSTREAM_UNAVAILABLE"
	CodeCustomEndpointNotFound = "CUSTOM_ENDPOINT_NOT_FOUND"
	CodeUnsupportedProvider    = "UNSUPPORTED_PROVIDER"
	CodeBackendError           = "AI_BACKEND_ERROR"
	missingKeyPrefix           = "MISSING_"
	missingKeySuffix           = "_KEY"
)

var ErrNoProvider = errors.New("no AI provider configured")

// MissingKeyCode is MISSING_<PROVIDER>_KEY for the given provider id.
func MissingKeyCode(provider string) string {
	if provider == "" {
		provider = ProviderOpenAI
	}
	return missingKeyPrefix + strings.ToUpper(provider) + missingKeySuffix
}

// IsConfigCode reports whether code describes missing or wrong configuration
// rather than an upstream failure.
func IsConfigCode(code string) bool {
	switch code {
	case CodeUnsupportedProvider, CodeCustomEndpointNotFound:
		return true
	}
	return strings.HasPrefix(code, missingKeyPrefix) && strings.HasSuffix(code, missingKeySuffix)
}

// Error carries a stable code and the candidate that produced it.
type Error struct {
	Code     string
	Provider string
	Model    string
	Err      error
}

func (e *Error) Error() string {
	switch {
	case e.Provider != "" && e.Model != "":
		return fmt.Sprintf("%s (%s/%s): %v", e.Code, e.Provider, e.Model, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code
}

func (e *Error) Unwrap() error { return e.Err }

// CodeOf extracts the code of err, AI_BACKEND_ERROR when it has none.
func CodeOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) && ae.Code != "" {
		return ae.Code
	}
	code, _ := Classify(err)
	return code
}

// HTTPError is a non-2xx answer from an OpenAI-compatible endpoint.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("upstream returned HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("upstream returned HTTP %d: %s", e.StatusCode, e.Message)
}

// Classify maps an attempt error to a code and reports whether it is the kind
// of failure that another candidate may not share.
func Classify(err error) (code string, failover bool) {
	if err == nil {
		return "", false
	}
	var ae *Error
	if errors.As(err, &ae) && ae.Code != "" && ae.Err != nil {
		if IsConfigCode(ae.Code) {
			return ae.Code, false
		}
		return Classify(ae.Err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return CodeTimeout, true
	}

	var he *HTTPError
	if errors.As(err, &he) {
		return classifyStatus(he.StatusCode, he.Message)
	}
	var ge genai.APIError
	if errors.As(err, &ge) {
		return classifyStatus(ge.Code, ge.Message+" "+ge.Status)
	}

	if code, ok := classifyMessage(err.Error()); ok {
		return code, true
	}

	var ne net.Error
	if errors.As(err, &ne) {
		if ne.Timeout() {
			return CodeTimeout, true
		}
		return CodeUpstreamUnavailable, true
	}
	return CodeBackendError, false
}

func classifyStatus(status int, message string) (string, bool) {
	if code, ok := classifyMessage(message); ok {
		return code, true
	}
	switch status {
	case http.StatusTooManyRequests:
		return CodeRateLimit, true
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return CodeUpstreamUnavailable, true
	case http.StatusRequestTimeout:
		return CodeTimeout, true
	case http.StatusNotFound:
		return CodeModelNotFound, true
	}
	return CodeBackendError, false
}

func classifyMessage(msg string) (string, bool) {
	m := strings.ToLower(msg)
	switch {
	case strings.Contains(m, "no available channel"), strings.Contains(m, "no available distributor"):
		return CodeModelUnavailable, true
	case strings.Contains(m, "model not found"), strings.Contains(m, "model_not_found"),
		strings.Contains(m, "does not exist"), strings.Contains(m, "is not a valid model"):
		return CodeModelNotFound, true
	case strings.Contains(m, "rate limit"), strings.Contains(m, "resource_exhausted"):
		return CodeRateLimit, true
	case strings.Contains(m, "timeout"), strings.Contains(m, "timed out"):
		return CodeTimeout, true
	}
	return "", false
}

func errUnsupported(id string) error { return fmt.Errorf("unsupported AI provider %q", id) }

func errCustomNotFound(id string) error { return fmt.Errorf("custom AI endpoint %q not found", id) }
