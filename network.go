package faults

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"syscall"
	"time"
)

// ConnKind identifies a low-level connection failure.
type ConnKind string

const (
	ConnRefused     ConnKind = "refused"
	ConnReset       ConnKind = "reset"
	ConnTimeout     ConnKind = "timeout"
	ConnDNSFailure  ConnKind = "dns"
	ConnUnreachable ConnKind = "unreachable"
)

// NetworkDetails describes the failed exchange. Either StatusCode or
// ConnKind is typically set; both may be empty for generic failures.
type NetworkDetails struct {
	// StatusCode is the HTTP response status, when a response was received.
	StatusCode int `json:"status_code,omitempty"`

	// ConnKind is the low-level failure class, when no response arrived.
	ConnKind ConnKind `json:"conn_kind,omitempty"`

	// URL is the requested resource.
	URL string `json:"url,omitempty"`

	// Host is the remote host, used in diagnostics.
	Host string `json:"host,omitempty"`

	// RetryAfter is the raw Retry-After response header value, if any.
	RetryAfter string `json:"retry_after,omitempty"`
}

// NetworkError classifies failures while fetching remote specs or schemas.
type NetworkError struct {
	*Record
	Details NetworkDetails `json:"details"`
}

// CodeForStatus maps an HTTP status to a taxonomy code. Statuses in the
// 5xx range collapse to one server-error code; notable 4xx statuses map
// individually.
func CodeForStatus(status int) string {
	switch {
	case status >= 500:
		return CodeNetworkServerError
	case status == http.StatusNotFound:
		return CodeNetworkNotFound
	case status == http.StatusForbidden:
		return CodeNetworkForbidden
	case status == http.StatusUnauthorized:
		return CodeNetworkUnauthorized
	case status == http.StatusTooManyRequests:
		return CodeNetworkRateLimited
	case status == http.StatusRequestTimeout:
		return CodeNetworkTimeout
	default:
		return CodeNetworkError
	}
}

// codeForConn maps a connection failure class to a taxonomy code.
func codeForConn(kind ConnKind) string {
	switch kind {
	case ConnRefused:
		return CodeNetworkRefused
	case ConnReset:
		return CodeNetworkReset
	case ConnTimeout:
		return CodeNetworkTimeout
	case ConnDNSFailure:
		return CodeNetworkDNSFailure
	case ConnUnreachable:
		return CodeNetworkUnreachable
	default:
		return CodeNetworkError
	}
}

// ClassifyConnError inspects a transport error and returns its connection
// failure class. Returns "" for errors that are not connection-level.
func ClassifyConnError(err error) ConnKind {
	if err == nil {
		return ""
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ConnDNSFailure
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ConnTimeout
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ECONNREFUSED:
			return ConnRefused
		case syscall.ECONNRESET, syscall.EPIPE:
			return ConnReset
		case syscall.ETIMEDOUT:
			return ConnTimeout
		case syscall.EHOSTUNREACH, syscall.ENETUNREACH:
			return ConnUnreachable
		}
	}

	return ""
}

// retryableConn holds the connection failure classes worth retrying.
var retryableConn = map[ConnKind]bool{
	ConnRefused:     true,
	ConnReset:       true,
	ConnTimeout:     true,
	ConnDNSFailure:  true,
	ConnUnreachable: true,
}

// retryableStatus reports whether an HTTP status is worth retrying:
// 5xx server errors, request timeouts, and rate limiting. Other 4xx client
// errors are the caller's fault and will not improve on retry.
func retryableStatus(status int) bool {
	return status >= 500 ||
		status == http.StatusRequestTimeout ||
		status == http.StatusTooManyRequests
}

// NewNetworkError classifies a failed network exchange. The code is
// inferred from the HTTP status when one was received, otherwise from the
// connection failure class. Retryability follows the classification: 5xx,
// 408, 429, and connection-level failures are retryable.
func NewNetworkError(message string, details NetworkDetails, opts Options) *NetworkError {
	var code string
	var recoverable bool
	switch {
	case details.StatusCode != 0:
		code = CodeForStatus(details.StatusCode)
		recoverable = retryableStatus(details.StatusCode)
	case details.ConnKind != "":
		code = codeForConn(details.ConnKind)
		recoverable = retryableConn[details.ConnKind]
	default:
		code = CodeNetworkError
	}

	if opts.Category == "" {
		opts.Category = CategoryNetwork
	}
	opts.Recoverable = recoverable

	rec := New(message, code, opts)
	if details.URL != "" {
		rec.AddContext("url", details.URL)
	}
	if details.StatusCode != 0 {
		rec.AddContext("status_code", details.StatusCode)
	}

	ne := &NetworkError{Record: rec, Details: details}
	if d := ne.RetryAfterDelay(time.Now()); d > 0 {
		rec.AddContext("retry_after_ms", d.Milliseconds())
	}
	rec.Diagnostics = ne.DiagnosticCommands()
	rec.Solutions = append(rec.Solutions, ne.OfflineFallbacks()...)
	if proxy := ProxyFromEnv(); proxy != "" {
		rec.AddContext("proxy", proxy)
		rec.Solutions = append(rec.Solutions, "Verify the outbound proxy is reachable: "+proxy)
	}

	return ne
}

// Retryable reports whether the failure is worth retrying with backoff.
func (e *NetworkError) Retryable() bool { return e.Recoverable }

// RateLimited reports whether the server rejected the request with HTTP 429.
func (e *NetworkError) RateLimited() bool {
	return e.Details.StatusCode == http.StatusTooManyRequests
}

// RetryAfterDelay parses the Retry-After header value into a wait duration
// relative to now. Both delta-seconds and HTTP-date forms are supported;
// absent or malformed values and dates in the past yield zero.
func (e *NetworkError) RetryAfterDelay(now time.Time) time.Duration {
	raw := e.Details.RetryAfter
	if raw == "" {
		return 0
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(raw); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

// ProxyFromEnv reports the outbound proxy configured in the environment,
// or "" when none is set.
func ProxyFromEnv() string {
	for _, key := range []string{"HTTPS_PROXY", "https_proxy", "HTTP_PROXY", "http_proxy", "ALL_PROXY", "all_proxy"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}

// OfflineFallbacks lists the ways generation can proceed without the
// remote resource.
func (e *NetworkError) OfflineFallbacks() []string {
	return []string{
		"Use a previously cached copy of the spec",
		"Point the generator at a local spec file",
		"Fall back to the bundled example spec",
	}
}

// DiagnosticCommands synthesizes command-style diagnostics tailored to the
// detected issue.
func (e *NetworkError) DiagnosticCommands() []string {
	host := e.Details.Host
	if host == "" {
		host = "<host>"
	}
	switch e.Code {
	case CodeNetworkDNSFailure:
		return []string{
			fmt.Sprintf("nslookup %s", host),
			fmt.Sprintf("dig %s +short", host),
			"Check /etc/resolv.conf for the configured resolver",
		}
	case CodeNetworkRefused:
		return []string{
			fmt.Sprintf("nc -zv %s 443", host),
			fmt.Sprintf("curl -v https://%s/", host),
		}
	case CodeNetworkTimeout, CodeNetworkUnreachable:
		return []string{
			fmt.Sprintf("ping -c 3 %s", host),
			fmt.Sprintf("traceroute %s", host),
		}
	case CodeNetworkRateLimited:
		return []string{"Inspect the Retry-After response header before retrying"}
	default:
		return []string{fmt.Sprintf("curl -v %s", e.Details.URL)}
	}
}
