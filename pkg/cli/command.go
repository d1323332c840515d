package cli

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// CommandName identifies a session command.
type CommandName string

const (
	CmdNew     CommandName = "new"
	CmdSelect  CommandName = "select"
	CmdUpdate  CommandName = "update"
	CmdDelete  CommandName = "delete"
	CmdCurrent CommandName = "current"
	CmdDelay   CommandName = "delay"
	CmdPing    CommandName = "ping"
	CmdStart   CommandName = "start"
	CmdStop    CommandName = "stop"
	CmdThreads CommandName = "threads"
	CmdToken   CommandName = "token"
	CmdTokens  CommandName = "tokens"
	CmdInfo    CommandName = "info"
	CmdList    CommandName = "list"
	CmdBatch   CommandName = "batch"
	CmdCopy    CommandName = "copy"
	CmdHelp    CommandName = "help"
	CmdClear   CommandName = "clear"
	CmdExit    CommandName = "exit"
)

var aliases = map[string]CommandName{
	"del": CmdDelete,
	"l":   CmdList,
	"cls": CmdClear,
}

// Command is one parsed input line. Only the fields relevant to Name are set.
type Command struct {
	Name     CommandName
	URL      string
	ID       int
	Interval time.Duration
	Workers  int
	Path     string
	Raw      string
}

// InputError is an unparsable command line. Hint, when set, shows the
// expected form.
type InputError struct {
	Input string
	Hint  string
}

func (e *InputError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("Invalid input: %s (%s)", e.Input, e.Hint)
	}
	return fmt.Sprintf("Invalid input: %s", e.Input)
}

// ErrEmptyInput is returned for a blank line.
var ErrEmptyInput = errors.New("empty input")

var digits = regexp.MustCompile(`\d+`)

// ParseCommand splits a line on whitespace and validates its arguments.
func ParseCommand(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, ErrEmptyInput
	}

	raw := strings.Join(fields, " ")
	word := strings.ToLower(fields[0])
	name := CommandName(word)
	if alias, ok := aliases[word]; ok {
		name = alias
	}
	args := fields[1:]
	cmd := Command{Name: name, Raw: raw}
	bad := func(hint string) (Command, error) {
		return Command{}, &InputError{Input: raw, Hint: hint}
	}

	switch name {
	case CmdNew, CmdUpdate:
		if len(args) < 1 {
			return bad(string(name) + " <url>")
		}
		cmd.URL = args[0]

	case CmdSelect, CmdDelete, CmdToken:
		if len(args) < 1 {
			return bad(string(name) + " <id>")
		}
		id, ok := parseID(args[0])
		if !ok {
			return bad(string(name) + " <id>")
		}
		cmd.ID = id

	case CmdCopy:
		if len(args) > 0 {
			id, ok := parseID(args[0])
			if !ok {
				return bad("copy [id]")
			}
			cmd.ID = id
		}

	case CmdDelay:
		d, err := ParseDelay(args)
		if err != nil {
			return bad("delay <seconds> or delay <minutes>m")
		}
		cmd.Interval = d

	case CmdThreads:
		if len(args) < 1 {
			return bad("threads <n>")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return bad("threads <n>")
		}
		cmd.Workers = n

	case CmdBatch:
		if len(args) < 1 {
			return bad("batch <file>")
		}
		cmd.Path = args[0]

	case CmdCurrent, CmdPing, CmdStart, CmdStop, CmdTokens, CmdInfo, CmdList,
		CmdHelp, CmdClear, CmdExit:

	default:
		return bad("type 'help' to display options")
	}
	return cmd, nil
}

// parseID pulls the first run of digits out of s, so "#3" and "3." work.
func parseID(s string) (int, bool) {
	m := digits.FindString(s)
	if m == "" {
		return 0, false
	}
	id, err := strconv.Atoi(m)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

var delayPattern = regexp.MustCompile(`^(\d+)\s*([a-zA-Z]*)$`)

// ParseDelay reads "<n>[unit]" where the unit may also be a separate word:
// "30", "30s", "5m", "5 min", "2 hours". Unknown units count as seconds.
func ParseDelay(args []string) (time.Duration, error) {
	joined := strings.TrimSpace(strings.Join(args, " "))
	m := delayPattern.FindStringSubmatch(joined)
	if m == nil {
		return 0, fmt.Errorf("invalid delay %q", joined)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid delay %q", joined)
	}

	unit := time.Second
	switch strings.ToLower(m[2]) {
	case "m", "min", "mins", "minutes":
		unit = time.Minute
	case "h", "hrs", "hours":
		unit = time.Hour
	}
	return time.Duration(n) * unit, nil
}
