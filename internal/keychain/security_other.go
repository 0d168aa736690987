// Copyright (c) 2025 chatdb
// Licensed under the MIT License. See LICENSE file in the project root for details.

//go:build !darwin

package keychain

import "errors"

var errNoSecurityTool = errors.New("the security tool is only available on macOS")

// securityBackend exists so Manager compiles everywhere; NewManager only
// uses it on macOS.
type securityBackend struct{}

func newSecurityBackend() (*securityBackend, error) { return nil, errNoSecurityTool }

func (s *securityBackend) Set(string, string) error   { return errNoSecurityTool }
func (s *securityBackend) Get(string) (string, error) { return "", errNoSecurityTool }
func (s *securityBackend) Delete(string) error        { return errNoSecurityTool }
