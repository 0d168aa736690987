// Copyright (c) 2025 chatdb
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"io"
	"sync"
	"time"

	"chatdb/cli/internal/importer"
	"chatdb/cli/internal/terminal"

	"atomicgo.dev/cursor"
	"github.com/pterm/pterm"
)

var spinnerFrames = []string{"|", "/", "-", "\\"}

// startInlineSpinner starts a simple inline spinner animation on a single line.
// It displays rotating animation frames followed by text, updating the same
// line in the terminal until the returned function is called. The line is
// cleared when the spinner stops.
func startInlineSpinner(w io.Writer, text string, frames []string, interval time.Duration) func() {
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		i := 0
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				line := fmt.Sprintf("%s %s", frames[i%len(frames)], text)
				fmt.Fprintf(w, "\r%*s\r", len(line), "")
				return
			case <-ticker.C:
				fmt.Fprintf(w, "\r%s %s", frames[i%len(frames)], text)
				i++
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			wg.Wait()
		})
	}
}

// startProgressArea renders p in a pterm area, refreshing the spinner frame
// of running imports, until the returned function is called. The final state
// stays on screen.
func startProgressArea(p *importer.Progress) func() {
	if !terminal.IsInteractive() {
		return func() {}
	}
	cursor.Hide()
	area, err := pterm.DefaultArea.Start()
	if err != nil {
		cursor.Show()
		return func() {}
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(120 * time.Millisecond)
		defer t.Stop()
		frame := 0
		for {
			select {
			case <-t.C:
				frame++
				area.Update(p.Render(spinnerFrames[frame%len(spinnerFrames)]))
			case <-stop:
				area.Update(p.Render(" "))
				return
			}
		}
	}()
	return func() {
		close(stop)
		wg.Wait()
		_ = area.Stop()
		cursor.Show()
	}
}

// chatSpinner returns the activity indicator used while a turn waits on the
// model or the database. Non-interactive runs get no indicator.
func chatSpinner() func(text string) func() {
	if !terminal.IsInteractive() {
		return nil
	}
	return func(text string) func() {
		sp, err := pterm.DefaultSpinner.WithRemoveWhenDone(true).Start(text)
		if err != nil {
			return func() {}
		}
		return func() { _ = sp.Stop() }
	}
}
