// Copyright (c) 2025 chatdb
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"
)

// OracleErrorType represents the category of a completion endpoint failure
type OracleErrorType int

const (
	OracleErrorUnknown OracleErrorType = iota
	OracleErrorNetwork
	OracleErrorAuth
	OracleErrorRateLimit
	OracleErrorTimeout
	OracleErrorUnavailable
)

// ParseOracleError categorizes a completion endpoint error message
func ParseOracleError(errMsg string) OracleErrorType {
	lower := strings.ToLower(errMsg)

	switch {
	case strings.Contains(lower, "status code: 401"), strings.Contains(lower, "status code: 403"),
		strings.Contains(lower, "api key"), strings.Contains(lower, "unauthorized"):
		return OracleErrorAuth
	case strings.Contains(lower, "status code: 429"), strings.Contains(lower, "rate limit"),
		strings.Contains(lower, "quota"):
		return OracleErrorRateLimit
	case strings.Contains(lower, "deadline"), strings.Contains(lower, "timeout"):
		return OracleErrorTimeout
	case strings.Contains(lower, "status code: 5"), strings.Contains(lower, "unavailable"),
		strings.Contains(lower, "overloaded"):
		return OracleErrorUnavailable
	case strings.Contains(lower, "connection reset"), strings.Contains(lower, "connection refused"),
		strings.Contains(lower, "no such host"), strings.Contains(lower, "eof"):
		return OracleErrorNetwork
	}

	return OracleErrorUnknown
}

// FormatOracleError formats a completion endpoint error in a user-friendly way
func FormatOracleError(errMsg string) string {
	errType := ParseOracleError(errMsg)

	var builder strings.Builder

	builder.WriteString(pterm.NewStyle(pterm.FgRed, pterm.Bold).Sprint("Language model request failed"))
	builder.WriteString("\n\n")

	switch errType {
	case OracleErrorNetwork:
		builder.WriteString("The connection to the model endpoint was interrupted.\n")
		builder.WriteString("This usually happens when:\n")
		builder.WriteString("  • Your internet connection was disrupted\n")
		builder.WriteString("  • The base URL points at a host that is down\n")

	case OracleErrorAuth:
		builder.WriteString("The model endpoint rejected the API key.\n")
		builder.WriteString("To fix this:\n")
		builder.WriteString("  • Run 'chatdb login' to store a valid key\n")
		builder.WriteString("  • Or set CHATDB_LLM_API_KEY\n")

	case OracleErrorRateLimit:
		builder.WriteString("The model endpoint is rate limiting this key.\n")
		builder.WriteString("  • Wait a moment and ask again\n")
		builder.WriteString("  • Check the quota of your account\n")

	case OracleErrorTimeout:
		builder.WriteString("The model took too long to answer.\n")
		builder.WriteString("  • Raise llm.timeout in the config file\n")
		builder.WriteString("  • Or pick a smaller model\n")

	case OracleErrorUnavailable:
		builder.WriteString("The model endpoint is currently unavailable.\n")
		builder.WriteString("  • The provider may be overloaded or under maintenance\n")

	default:
		builder.WriteString("The request to the model endpoint failed.\n")
	}

	if strings.TrimSpace(errMsg) != "" {
		builder.WriteString("\n")
		builder.WriteString(pterm.NewStyle(pterm.FgGray).Sprint("Technical details: " + Truncate(Mask(errMsg), 300)))
	}

	return builder.String()
}

// PresentOracleError displays a formatted completion endpoint error
func PresentOracleError(errMsg string) {
	fmt.Println()
	fmt.Println(FormatOracleError(errMsg))
	fmt.Println()
}
