package command

import "strings"

const optPrefix = "--"

// Parse parses args in multicommand mode. args[0] is the name of the first
// command, usually the program path.
//
// Once a command switches to parameter collection (after an explicit "--")
// every remaining argument belongs to it, so no command can follow.
func Parse(args []string) ([]Command, error) {
	return parse(args, false)
}

// ParseOne parses args in one command mode: everything after the options of
// the first command is a parameter.
func ParseOne(args []string) (Command, error) {
	cmds, err := parse(args, true)
	if err != nil {
		return Command{}, err
	}
	return cmds[0], nil
}

func parse(args []string, oneCommand bool) ([]Command, error) {
	if args == nil {
		return nil, ErrInvalidArgVector
	}
	if len(args) == 0 {
		return nil, ErrInvalidArgCount
	}

	var result []Command
	i := 0
	for i < len(args) {
		name := args[i]
		if name == "" {
			return nil, &ArgError{Index: i, Err: ErrEmptyName}
		}
		i++

		options := make(map[string]*string)
		endOfOptions := false
		for ; i < len(args); i++ {
			tok, ok := splitOption(args[i])
			if !ok {
				// a command or a parameter
				break
			}
			if tok.name == "" {
				endOfOptions = true
				i++
				break
			}
			options[tok.name] = tok.value
		}

		var params []string
		if endOfOptions || oneCommand {
			params = append(params, args[i:]...)
			i = len(args)
		}

		result = append(result, Command{name: name, options: options, parameters: params})
		if oneCommand {
			break
		}
	}
	return result, nil
}

type optToken struct {
	name  string
	value *string
}

// splitOption classifies arg. An empty name denotes the end-of-options
// marker, which is "--" itself or "--=..." (nothing before the "=").
func splitOption(arg string) (optToken, bool) {
	rest, ok := strings.CutPrefix(arg, optPrefix)
	if !ok {
		return optToken{}, false
	}
	name, value, hasValue := strings.Cut(rest, "=")
	if name == "" {
		return optToken{}, true
	}
	if !hasValue {
		return optToken{name: name}, true
	}
	return optToken{name: name, value: &value}, true
}
