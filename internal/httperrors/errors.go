// Copyright (c) 2025 chatdb
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package httperrors turns network and endpoint failures into user-friendly messages.
// It is used for the three remote services chatdb talks to: the completion endpoint,
// PostgreSQL and MongoDB.
package httperrors

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"

	"chatdb/cli/internal/logging"

	"github.com/pterm/pterm"
)

// Category is the broad class of a remote failure.
type Category int

const (
	CategoryGeneric Category = iota
	CategoryTimeout
	CategoryDNS
	CategoryRefused
	CategoryTLS
	CategoryAuth
	CategoryRateLimit
	CategoryServer
)

// Classify inspects err and reports which Category it belongs to.
func Classify(err error) Category {
	if err == nil {
		return CategoryGeneric
	}
	switch {
	case isTimeoutError(err):
		return CategoryTimeout
	case isDNSError(err):
		return CategoryDNS
	case isConnectionRefusedError(err):
		return CategoryRefused
	case isAuthError(err.Error()):
		return CategoryAuth
	case isRateLimitError(err.Error()):
		return CategoryRateLimit
	case isSSLError(err):
		return CategoryTLS
	case isServerError(err.Error()):
		return CategoryServer
	}
	return CategoryGeneric
}

// Format renders a multi-line explanation for err. action describes what was being
// attempted ("verifying the database connection"), host names the remote side.
// Technical details are masked before they are shown.
func Format(err error, action, host string) string {
	if err == nil {
		return ""
	}
	if host == "" {
		host = "the server"
	}
	var b strings.Builder
	switch Classify(err) {
	case CategoryTimeout:
		fmt.Fprintf(&b, "⏱️  Timeout while %s\n\n", action)
		fmt.Fprintf(&b, "%s took too long to respond. This could mean:\n", host)
		b.WriteString("  • Slow or unstable network connection\n")
		b.WriteString("  • The service is under heavy load\n")
		b.WriteString("  • A firewall is silently dropping the connection\n")
	case CategoryDNS:
		fmt.Fprintf(&b, "🌐 Cannot resolve %s while %s\n\n", host, action)
		b.WriteString("Please check:\n")
		b.WriteString("  • The host name in your connection string\n")
		b.WriteString("  • Your internet connection and DNS settings\n")
	case CategoryRefused:
		fmt.Fprintf(&b, "🚫 Connection refused while %s\n\n", action)
		fmt.Fprintf(&b, "%s is not accepting connections. This could mean:\n", host)
		b.WriteString("  • The service is not running\n")
		b.WriteString("  • Wrong host or port\n")
		b.WriteString("  • A firewall is blocking the port\n")
	case CategoryTLS:
		fmt.Fprintf(&b, "🔒 Secure connection failed while %s\n\n", action)
		b.WriteString("Try:\n")
		b.WriteString("  • Checking the sslmode / tls options in your connection string\n")
		b.WriteString("  • Checking your system date and time\n")
	case CategoryAuth:
		fmt.Fprintf(&b, "🔑 Authentication failed while %s\n\n", action)
		b.WriteString("To fix this:\n")
		b.WriteString("  • Run 'chatdb login' to store a valid API key\n")
		b.WriteString("  • Or run 'chatdb connect' to update database credentials\n")
	case CategoryRateLimit:
		fmt.Fprintf(&b, "🐢 Rate limited while %s\n\n", action)
		b.WriteString("The model provider rejected the request for quota reasons.\n")
		b.WriteString("  • Wait a moment and try again\n")
		b.WriteString("  • Check the billing and quota of your API key\n")
	case CategoryServer:
		fmt.Fprintf(&b, "⚠️  Server error while %s\n\n", action)
		fmt.Fprintf(&b, "%s reported an internal error. Please try again in a few minutes.\n", host)
	default:
		fmt.Fprintf(&b, "❌ Cannot reach %s while %s\n\n", host, action)
		b.WriteString("Please check:\n")
		b.WriteString("  • Your connection string / base URL\n")
		b.WriteString("  • Your network connection\n")
	}
	b.WriteString("\n")
	b.WriteString(pterm.NewStyle(pterm.FgGray).Sprint("Technical details: " + logging.Truncate(logging.Mask(err.Error()), 300)))
	return b.String()
}

// FormatNetworkError prints Format's output and returns err wrapped for callers
// that still want to fail the command.
func FormatNetworkError(err error, action, host string) error {
	if err == nil {
		return nil
	}
	pterm.Println(Format(err, action, host))
	pterm.Println()
	return fmt.Errorf("network error: %w", err)
}

// isTimeoutError checks if the error is a timeout error.
func isTimeoutError(err error) bool {
	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded") {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// isDNSError checks if the error is a DNS resolution error.
func isDNSError(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such host")
}

// isConnectionRefusedError checks if the error is a connection refused error.
func isConnectionRefusedError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) && errors.Is(opErr.Err, syscall.ECONNREFUSED) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "connection refused")
}

// isSSLError checks if the error is an SSL/TLS error.
func isSSLError(err error) bool {
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "tls") ||
		strings.Contains(errStr, "ssl") ||
		strings.Contains(errStr, "certificate")
}

func isAuthError(errStr string) bool {
	lower := strings.ToLower(errStr)
	return strings.Contains(lower, "status code: 401") ||
		strings.Contains(lower, "status code: 403") ||
		strings.Contains(lower, "invalid api key") ||
		strings.Contains(lower, "incorrect api key") ||
		strings.Contains(lower, "password authentication failed") ||
		strings.Contains(lower, "authentication failed")
}

func isRateLimitError(errStr string) bool {
	lower := strings.ToLower(errStr)
	return strings.Contains(lower, "status code: 429") ||
		strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "quota")
}

// isServerError checks if the error indicates a server-side problem (5xx errors).
func isServerError(errStr string) bool {
	lower := strings.ToLower(errStr)
	return strings.Contains(lower, "status code: 500") ||
		strings.Contains(lower, "status code: 502") ||
		strings.Contains(lower, "status code: 503") ||
		strings.Contains(lower, "status code: 504") ||
		strings.Contains(lower, "internal server error") ||
		strings.Contains(lower, "bad gateway") ||
		strings.Contains(lower, "service unavailable") ||
		strings.Contains(lower, "gateway timeout")
}

// ExtractHostFromURL extracts the hostname from a URL for error messages.
func ExtractHostFromURL(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil || u.Host == "" {
		return "the server"
	}
	return u.Host
}
