package command

import "strings"

// ID joins the names of commands[offset:] with delim. Subcommand dispatch
// tables are usually keyed by ID(cmds, 1, ".").
func ID(commands []Command, offset int, delim string) (string, error) {
	if offset < 0 || offset >= len(commands) {
		return "", ErrIDOffset
	}
	names := make([]string, 0, len(commands)-offset)
	for _, c := range commands[offset:] {
		names = append(names, c.name)
	}
	return strings.Join(names, delim), nil
}

// ParameterID joins params[offset:] with delim.
func ParameterID(params []string, offset int, delim string) (string, error) {
	if offset < 0 || offset >= len(params) {
		return "", ErrIDOffset
	}
	return strings.Join(params[offset:], delim), nil
}
