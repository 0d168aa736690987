// Copyright (c) 2025 chatdb
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package terminal provides utilities for terminal operations such as clearing
// prompts and reading secrets without echo.
package terminal

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"golang.org/x/term"
)

// Width returns the current terminal width, or 80 when stdout is not a terminal.
func Width() int {
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		return width
	}
	return 80
}

// IsInteractive reports whether stdin and stdout are both terminals.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// LinesFor returns how many terminal rows textLength characters occupy at width.
func LinesFor(textLength, width int) int {
	if width <= 0 {
		width = 80
	}
	lines := int(math.Ceil(float64(textLength) / float64(width)))
	if lines < 1 {
		lines = 1
	}
	return lines
}

// ClearPreviousLines clears text from the terminal that was previously printed.
// textLength is the prompt plus what the user typed. One extra line is cleared
// for the newline produced by Enter.
func ClearPreviousLines(textLength int) {
	clearLines(os.Stdout, LinesFor(textLength, Width())+1)
}

func clearLines(w io.Writer, linesToClear int) {
	for i := 0; i < linesToClear; i++ {
		fmt.Fprint(w, "\r\x1b[2K") // Move to start and clear entire line
		if i < linesToClear-1 {
			fmt.Fprint(w, "\x1b[1A") // Move up one line (don't move up on last iteration)
		}
	}
}

// ReadSecret prints prompt and reads a line without echo when stdin is a
// terminal. Piped input is read as a plain line so scripts can feed secrets.
func ReadSecret(prompt string) (string, error) {
	fmt.Print(prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	return ReadLine(os.Stdin)
}

// ReadLine reads one line from r and trims surrounding whitespace.
func ReadLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
