// Copyright (c) 2025 chatdb
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package session is the chat loop: it reads a line, classifies it, and runs
// the matching command against the active backend. Every failure is printed
// and the loop continues; only exit or end of input stops it.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"chatdb/cli/internal/assistant"
	"chatdb/cli/internal/logging"
)

// Backend is everything the chat loop needs from one database adapter.
type Backend interface {
	assistant.Backend
	assistant.Inspector
	Database() string
	ListDatabases(ctx context.Context) ([]string, error)
	Select(ctx context.Context, name string) error
}

// State is what persists between turns.
type State struct {
	Backend  assistant.BackendKind
	Database string
}

// InitialState is the state a chat starts in. No database is selected unless
// database is non-empty and active can select it; a failed selection is
// returned alongside a state with no database.
func InitialState(ctx context.Context, kind assistant.BackendKind, active Backend, database string) (State, error) {
	state := State{Backend: kind}
	if database == "" || active == nil {
		return state, nil
	}
	if err := active.Select(ctx, database); err != nil {
		return state, err
	}
	state.Database = database
	return state, nil
}

// Prompt renders the input prompt for s.
func (s State) Prompt() string {
	db := s.Database
	if db == "" {
		db = "none"
	}
	return fmt.Sprintf("[%s | %s] > ", s.Backend, db)
}

// LineReader supplies user input. Readline returns io.EOF when input ends.
type LineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
}

// Config wires a Session. SQL and Mongo may be nil when that backend is not
// configured; commands needing it then print how to configure it.
type Config struct {
	Oracle assistant.Completer
	SQL    Backend
	Mongo  Backend
	State  State
	Out    io.Writer
	Logger *slog.Logger
	// Spin shows an activity indicator until the returned func is called.
	Spin func(text string) (stop func())
}

// Session holds the chat state and the collaborators each turn uses.
type Session struct {
	state      State
	backends   map[assistant.BackendKind]Backend
	classifier *assistant.Classifier
	synth      *assistant.Synthesizer
	out        io.Writer
	logger     *slog.Logger
	spin       func(text string) func()
}

// New returns a Session ready to Run.
func New(cfg Config) *Session {
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	if cfg.Out == nil {
		cfg.Out = io.Discard
	}
	if cfg.Spin == nil {
		cfg.Spin = func(string) func() { return func() {} }
	}
	if cfg.State.Backend == "" {
		cfg.State.Backend = assistant.BackendSQL
	}

	backends := make(map[assistant.BackendKind]Backend)
	if cfg.SQL != nil {
		backends[assistant.BackendSQL] = cfg.SQL
	}
	if cfg.Mongo != nil {
		backends[assistant.BackendMongo] = cfg.Mongo
	}

	return &Session{
		state:      cfg.State,
		backends:   backends,
		classifier: assistant.NewClassifier(cfg.Oracle, cfg.Logger),
		synth:      assistant.NewSynthesizer(cfg.Oracle),
		out:        cfg.Out,
		logger:     cfg.Logger,
		spin:       cfg.Spin,
	}
}

// State returns the current state.
func (s *Session) State() State { return s.state }

// Run reads and handles lines until exit or end of input.
func (s *Session) Run(ctx context.Context, in LineReader) error {
	for {
		in.SetPrompt(s.state.Prompt())
		line, err := in.Readline()
		if errors.Is(err, io.EOF) {
			s.println("Goodbye!")
			return nil
		}
		if err != nil {
			return err
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if s.Handle(ctx, line) {
			return nil
		}
	}
}

// Handle runs one turn and reports whether the session should end.
func (s *Session) Handle(ctx context.Context, line string) bool {
	ctx, logger := logging.NewTurn(ctx, s.logger)
	logger.Debug("turn started", slog.String("input", logging.Truncate(logging.Mask(line), 200)))

	stop := s.spin("Thinking...")
	d := s.classifier.ClassifyWith(ctx, logger, line)
	stop()

	t := turn{Session: s, ctx: ctx, logger: logger, input: line}
	switch d.Command {
	case assistant.CommandList:
		t.list()
	case assistant.CommandSwitch:
		t.switchBackend(d.Target)
	case assistant.CommandSelect:
		t.selectDatabase(d.Target)
	case assistant.CommandQuery:
		t.query(d.Target)
	case assistant.CommandSchema:
		t.schema(d.Target)
	case assistant.CommandSchemaTables:
		t.schemaTables(d.Target)
	case assistant.CommandSchemaColumns:
		t.schemaColumns(d.Target)
	case assistant.CommandSchemaSample:
		t.schemaSample(d.Target)
	case assistant.CommandExit:
		s.println("Goodbye!")
		return true
	default:
		s.println(unknownMessage)
	}
	return false
}

const unknownMessage = "Sorry, I couldn't understand what you meant. Try commands like 'list databases', 'switch to MongoDB', or ask a query."

func (s *Session) println(a ...any) {
	fmt.Fprintln(s.out, a...)
}

func (s *Session) printf(format string, a ...any) {
	fmt.Fprintf(s.out, format, a...)
}
