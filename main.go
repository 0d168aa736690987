// Copyright (c) 2025 chatdb
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package main is the entry point for the chatdb CLI application.
// It provides a natural-language front end for PostgreSQL and MongoDB.
package main

import (
	"chatdb/cli/cmd"
)

// main is the entry point for the chatdb CLI application.
// It initializes and executes the command-line interface.
func main() {
	cmd.Execute()
}
