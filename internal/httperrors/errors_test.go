package httperrors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Category
	}{
		{name: "deadline", err: fmt.Errorf("ping: %w", context.DeadlineExceeded), want: CategoryTimeout},
		{name: "dns", err: &net.DNSError{Err: "no such host", Name: "db.invalid"}, want: CategoryDNS},
		{name: "refused", err: errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"), want: CategoryRefused},
		{name: "openai unauthorized", err: errors.New("error, status code: 401, status: 401 Unauthorized, message: Incorrect API key provided"), want: CategoryAuth},
		{name: "postgres auth", err: errors.New("FATAL: password authentication failed for user \"app\" (SQLSTATE 28P01)"), want: CategoryAuth},
		{name: "rate limit", err: errors.New("error, status code: 429, status: 429 Too Many Requests"), want: CategoryRateLimit},
		{name: "tls", err: errors.New("x509: certificate signed by unknown authority"), want: CategoryTLS},
		{name: "server", err: errors.New("error, status code: 503, status: 503 Service Unavailable"), want: CategoryServer},
		{name: "other", err: errors.New("boom"), want: CategoryGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestFormatMasksDetails(t *testing.T) {
	err := errors.New("dial mongodb://root:hunter2@db:27017: connection refused")
	out := Format(err, "verifying the MongoDB connection", "db:27017")

	assert.Contains(t, out, "Connection refused while verifying the MongoDB connection")
	assert.Contains(t, out, "db:27017 is not accepting connections")
	assert.NotContains(t, out, "hunter2")
	assert.Equal(t, "", Format(nil, "x", "y"))
}

func TestExtractHostFromURL(t *testing.T) {
	assert.Equal(t, "api.openai.com", ExtractHostFromURL("https://api.openai.com/v1"))
	assert.Equal(t, "the server", ExtractHostFromURL("::not a url"))
}
