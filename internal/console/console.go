package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/muurk/retools/internal/logging"
	"github.com/muurk/retools/internal/retools"
)

// MaxPositions is the most byte positions "key set" accepts
const MaxPositions = 8

// Engine is the subset of *retools.Engine the console drives
type Engine interface {
	Start() error
	Stop() error
	Clear() error
	List(filter string) (retools.Report, error)
	SetKey(id uint32, positions []int) (uint8, error)
	ClearKey(id uint32) error
	Keys() ([]retools.MaskEntry, error)
}

// KeyStore persists key extensions
type KeyStore interface {
	SaveKeys(entries []retools.MaskEntry) error
}

// ReportWriter renders a listing
type ReportWriter func(w io.Writer, r retools.Report) error

// UsageError reports a command given the wrong number of arguments
type UsageError struct {
	Command string
	Usage   string
}

func (e *UsageError) Error() string {
	if e.Usage == "" {
		return fmt.Sprintf("usage: %s (takes no arguments)", e.Command)
	}
	return fmt.Sprintf("usage: %s %s", e.Command, e.Usage)
}

// ErrUnknownCommand is returned for input that names no command
var ErrUnknownCommand = errors.New("unknown command")

// ErrNoKeyStore is returned by "key save" when no store is configured
var ErrNoKeyStore = errors.New("no config file to save keys to")

// Console executes control commands against an engine and writes a
// human-readable report for each one.
type Console struct {
	engine  Engine
	out     io.Writer
	keys    KeyStore
	render  ReportWriter
	surface string
}

// Option configures a Console
type Option func(*Console)

// WithKeyStore enables "key save"
func WithKeyStore(ks KeyStore) Option {
	return func(c *Console) { c.keys = ks }
}

// WithReportWriter replaces the plain text listing
func WithReportWriter(rw ReportWriter) Option {
	return func(c *Console) { c.render = rw }
}

// WithSurface names the console in log output (default "console")
func WithSurface(name string) Option {
	return func(c *Console) { c.surface = name }
}

// New creates a console writing reports to out
func New(engine Engine, out io.Writer, opts ...Option) *Console {
	c := &Console{
		engine:  engine,
		out:     out,
		render:  func(w io.Writer, r retools.Report) error { return r.Format(w) },
		surface: "console",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Execute runs one command line. The outcome, success or error, is written
// to the console output; the error is also returned. Blank lines are ignored.
func (c *Console) Execute(line string) error {
	args := strings.Fields(line)
	if len(args) > 0 && args[0] == "re" {
		args = args[1:]
	}
	if len(args) == 0 {
		return nil
	}

	err := c.dispatch(args)
	logging.LogCommand(c.surface, strings.Join(args, " "), err)
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
	}
	return err
}

func (c *Console) dispatch(args []string) error {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "start":
		if len(rest) != 0 {
			return &UsageError{Command: cmd}
		}
		if err := c.engine.Start(); err != nil {
			return err
		}
		fmt.Fprintln(c.out, "RE tools started")
	case "stop":
		if len(rest) != 0 {
			return &UsageError{Command: cmd}
		}
		if err := c.engine.Stop(); err != nil {
			return err
		}
		fmt.Fprintln(c.out, "RE tools stopped")
	case "clear":
		if len(rest) != 0 {
			return &UsageError{Command: cmd}
		}
		if err := c.engine.Clear(); err != nil {
			return err
		}
		fmt.Fprintln(c.out, "Cleared RE records")
	case "list":
		return c.list(rest)
	case "key":
		return c.key(rest)
	case "help":
		c.help()
	default:
		return fmt.Errorf("%w %q (try \"help\")", ErrUnknownCommand, cmd)
	}
	return nil
}

func (c *Console) list(args []string) error {
	if len(args) > 1 {
		return &UsageError{Command: "list", Usage: "[filter]"}
	}
	filter := ""
	if len(args) == 1 {
		filter = args[0]
	}
	r, err := c.engine.List(filter)
	if err != nil {
		return err
	}
	return c.render(c.out, r)
}

func (c *Console) key(args []string) error {
	if len(args) == 0 {
		return &UsageError{Command: "key", Usage: "set|clear|list|save"}
	}
	sub, rest := args[0], args[1:]
	switch sub {
	case "set":
		if len(rest) < 2 || len(rest) > 1+MaxPositions {
			return &UsageError{Command: "key set", Usage: "<id> <byte>..."}
		}
		id := ParseHex(rest[0])
		positions := make([]int, 0, len(rest)-1)
		for _, arg := range rest[1:] {
			positions = append(positions, ParseInt(arg))
		}
		mask, err := c.engine.SetKey(id, positions)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Set ID %x to bytes 0x%02x\n", id, mask)
	case "clear":
		if len(rest) != 1 {
			return &UsageError{Command: "key clear", Usage: "<id>"}
		}
		if err := c.engine.ClearKey(ParseHex(rest[0])); err != nil {
			return err
		}
		fmt.Fprintln(c.out, "Cleared ID key")
	case "list":
		if len(rest) != 0 {
			return &UsageError{Command: "key list"}
		}
		entries, err := c.engine.Keys()
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Fprintln(c.out, "No ID keys set")
		}
		for _, e := range entries {
			fmt.Fprintln(c.out, e.String())
		}
	case "save":
		if len(rest) != 0 {
			return &UsageError{Command: "key save"}
		}
		if c.keys == nil {
			return ErrNoKeyStore
		}
		entries, err := c.engine.Keys()
		if err != nil {
			return err
		}
		if err := c.keys.SaveKeys(entries); err != nil {
			return fmt.Errorf("failed to save keys: %w", err)
		}
		fmt.Fprintf(c.out, "Saved %d ID keys\n", len(entries))
	default:
		return fmt.Errorf("%w \"key %s\" (try \"help\")", ErrUnknownCommand, sub)
	}
	return nil
}

func (c *Console) help() {
	fmt.Fprint(c.out, `Commands:
  start                 start collecting statistics
  stop                  stop and discard statistics
  clear                 reset statistics and the session clock
  list [filter]         list keys containing filter
  key set <id> <pos>... extend the key of <id> with payload bytes (1-8)
  key clear <id>        remove the key extension for <id>
  key list              show configured key extensions
  key save              write key extensions to the config file
  quit                  leave the console
`)
}

// Run reads commands from in until EOF, "quit" or "exit", or until ctx is
// done. Command errors are reported and do not end the loop. prompt, if not
// empty, is written before each line is read.
func (c *Console) Run(ctx context.Context, in io.Reader, prompt string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		if prompt != "" {
			fmt.Fprint(c.out, prompt)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					if err != nil {
						return fmt.Errorf("failed to read commands: %w", err)
					}
				default:
				}
				return nil
			}
			switch strings.TrimSpace(line) {
			case "quit", "exit":
				return nil
			}
			_ = c.Execute(line)
		}
	}
}
