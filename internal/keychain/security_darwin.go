// Copyright (c) 2025 chatdb
// Licensed under the MIT License. See LICENSE file in the project root for details.

//go:build darwin

package keychain

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"chatdb/cli/internal/logging"
)

const notFoundMarker = "could not be found"

// securityBackend stores secrets as generic passwords through the macOS
// security tool: service "chatdb", one account per key.
type securityBackend struct {
	logger *slog.Logger
}

func newSecurityBackend() (*securityBackend, error) {
	if _, err := exec.LookPath("security"); err != nil {
		return nil, fmt.Errorf("security command not found: %w", err)
	}
	logger := logging.Discard()
	if os.Getenv("CHATDB_VERBOSE") == "1" {
		logger = logging.NewLogger("debug", os.Stderr)
	}
	return &securityBackend{logger: logger.With(slog.String("component", "keychain"))}, nil
}

// run executes security with args and returns trimmed stdout.
func (s *securityBackend) run(args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.Command("security", args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return strings.TrimSpace(stdout.String()), strings.TrimSpace(stderr.String()), err
}

func (s *securityBackend) Set(key, value string) error {
	s.logger.Debug("store secret", slog.String("key", key), slog.Int("bytes", len(value)))
	_, stderr, err := s.run("add-generic-password", "-U", "-s", ServiceName, "-a", key, "-l", ServiceName+" "+key, "-w", value)
	if err != nil {
		return fmt.Errorf("store %q in keychain: %s: %w", key, stderr, err)
	}
	return nil
}

func (s *securityBackend) Get(key string) (string, error) {
	out, stderr, err := s.run("find-generic-password", "-s", ServiceName, "-a", key, "-w")
	if err != nil {
		if strings.Contains(stderr, notFoundMarker) {
			s.logger.Debug("secret not found", slog.String("key", key))
			return "", ErrNotFound
		}
		return "", fmt.Errorf("read %q from keychain: %s: %w", key, stderr, err)
	}
	return out, nil
}

func (s *securityBackend) Delete(key string) error {
	_, stderr, err := s.run("delete-generic-password", "-s", ServiceName, "-a", key)
	if err != nil && !strings.Contains(stderr, notFoundMarker) {
		return fmt.Errorf("delete %q from keychain: %s: %w", key, stderr, err)
	}
	return nil
}
