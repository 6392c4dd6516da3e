package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	ErrUsage    = errors.New("usage")
	ErrNotFound = errors.New("property not found")
)

const usage = `commands:
  get <name>
  dump
  add <name> <value>
  update <name> <value>
  remove <name>`

func usageError(format string, args ...any) error {
	return fmt.Errorf("%w: %s\n%s", ErrUsage, fmt.Sprintf(format, args...), usage)
}

// Exec runs one command against the store and writes its result to out.
// Values are parsed as JSON and kept as plain strings when they are not.
func (a *App) Exec(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return usageError("missing command")
	}
	cmd, rest := strings.ToLower(args[0]), args[1:]
	switch cmd {
	case "get":
		if len(rest) != 1 {
			return usageError("get takes exactly one name")
		}
		value, ok := a.store.Property(rest[0])
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotFound, rest[0])
		}
		return writeJSON(out, value, false)
	case "dump":
		if len(rest) != 0 {
			return usageError("dump takes no arguments")
		}
		return writeJSON(out, a.store.State(), true)
	case "add", "update":
		if len(rest) < 2 {
			return usageError("%s takes a name and a value", cmd)
		}
		value := parseValue(strings.Join(rest[1:], " "))
		var (
			applied bool
			err     error
		)
		if cmd == "add" {
			applied, err = a.store.AddProperty(ctx, rest[0], value)
		} else {
			applied, err = a.store.UpdateProperty(ctx, rest[0], value)
		}
		return writeOutcome(out, applied, err)
	case "remove":
		if len(rest) != 1 {
			return usageError("remove takes exactly one name")
		}
		applied, err := a.store.RemoveProperty(ctx, rest[0])
		return writeOutcome(out, applied, err)
	default:
		return usageError("unknown command %q", cmd)
	}
}

func parseValue(raw string) any {
	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return raw
	}
	return value
}

func writeOutcome(out io.Writer, applied bool, err error) error {
	if err != nil {
		return err
	}
	result := "skipped"
	if applied {
		result = "applied"
	}
	_, err = fmt.Fprintln(out, result)
	return err
}

func writeJSON(out io.Writer, value any, indent bool) error {
	enc := json.NewEncoder(out)
	if indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(value)
}
