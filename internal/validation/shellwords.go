package validation

import (
	"errors"
	"fmt"

	"mvdan.cc/sh/v3/shell"
)

// SplitCommand splits a command written as one string, such as
// "ruff check --quiet", into the program and its arguments. Quoting and
// $VAR expansion follow POSIX shell rules. args are appended after the
// words of the command.
func SplitCommand(command string, args []string) (string, []string, error) {
	fields, err := shell.Fields(command, nil)
	if err != nil {
		return "", nil, fmt.Errorf("invalid command %q: %w", command, err)
	}
	if len(fields) == 0 {
		return "", nil, errors.New("command is required")
	}
	return fields[0], append(fields[1:], args...), nil
}
