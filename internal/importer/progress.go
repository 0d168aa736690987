// Copyright (c) 2025 chatdb
// Licensed under the MIT License. See LICENSE file in the project root for details.

package importer

import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"
)

// Progress tracks per-file import state for a live display. It is safe for
// concurrent use: the import runs on one goroutine while a spinner renders
// from another.
type Progress struct {
	mu        sync.Mutex
	order     []string
	active    map[string]struct{}
	completed map[string]int
	failed    map[string]string
	maxLen    int
}

// NewProgress returns a Progress for the given table names, in display order.
func NewProgress(names []string) *Progress {
	return &Progress{
		order:     append([]string(nil), names...),
		active:    make(map[string]struct{}),
		completed: make(map[string]int),
		failed:    make(map[string]string),
	}
}

// Start marks name as being imported.
func (p *Progress) Start(name string) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active[name] = struct{}{}
}

// Complete marks name as imported with n records.
func (p *Progress) Complete(name string, n int) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.active, name)
	p.completed[name] = n
}

// Fail marks name as failed with reason.
func (p *Progress) Fail(name, reason string) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.active, name)
	p.failed[name] = reason
}

// FailedCount returns the number of failed tables.
func (p *Progress) FailedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.failed)
}

// CompletedCount returns the number of imported tables.
func (p *Progress) CompletedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.completed)
}

// Render returns one line per table that has started, padded to the widest
// line seen so far to prevent flicker. spinner is the current animation frame.
func (p *Progress) Render(spinner string) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	var lines []string
	for _, name := range p.order {
		var line string
		if _, ok := p.active[name]; ok {
			line = spinner + " importing " + name
		} else if n, ok := p.completed[name]; ok {
			line = fmt.Sprintf("✓ imported %s (%d records)", name, n)
		} else if reason, ok := p.failed[name]; ok {
			line = "✗ failed " + name + ": " + reason
		} else {
			continue
		}
		if l := utf8.RuneCountInString(line); l > p.maxLen {
			p.maxLen = l
		}
		lines = append(lines, line)
	}
	for i := range lines {
		if pad := p.maxLen - utf8.RuneCountInString(lines[i]); pad > 0 {
			lines[i] += strings.Repeat(" ", pad)
		}
	}
	return strings.Join(lines, "\n")
}
