// Package command parses process arguments into commands with options and
// parameters.
//
// Assumed syntax:
//
//	one command mode:   name [--option[=[value]] ...] [--] [parameter ...]
//	multicommand mode:  name [--option[=[value]] ...] [-- [parameter ...]] name ...
//
// Each option may carry a value after the "=" character. The sequence of two
// dashes ("--") marks the end of options (or the end of commands in
// multicommand mode): every remaining argument becomes a parameter, including
// the ones that look like options. Short options ("-o") are not recognized and
// are always treated as command names or parameters.
package command

import (
	"maps"
	"slices"
	"strings"
)

// Command is one parsed unit of name, options and parameters. The zero value
// is invalid. A Command is immutable once constructed.
type Command struct {
	name       string
	options    map[string]*string
	parameters []string
}

// New returns a command. Both options and params are copied.
func New(name string, options map[string]*string, params []string) (Command, error) {
	if name == "" {
		return Command{}, ErrEmptyName
	}

	opts := make(map[string]*string, len(options))
	for k, v := range options {
		opts[k] = cloneValue(v)
	}

	return Command{
		name:       name,
		options:    opts,
		parameters: slices.Clone(params),
	}, nil
}

// IsValid reports whether c was constructed by New or by parsing.
func (c Command) IsValid() bool { return c.name != "" }

// Name returns the command name (or program path).
func (c Command) Name() string { return c.name }

// Options returns a copy of the option map. A nil value means the option was
// given without "=value".
func (c Command) Options() map[string]*string {
	out := make(map[string]*string, len(c.options))
	for k, v := range c.options {
		out[k] = cloneValue(v)
	}
	return out
}

// OptionNames returns the option names in sorted order.
func (c Command) OptionNames() []string {
	return slices.Sorted(maps.Keys(c.options))
}

// Parameters returns a copy of the parameters.
func (c Command) Parameters() []string {
	return slices.Clone(c.parameters)
}

// Parameter returns the parameter at index i.
func (c Command) Parameter(i int) (string, error) {
	if i < 0 || i >= len(c.parameters) {
		return "", &IndexError{Index: i, Len: len(c.parameters)}
	}
	return c.parameters[i], nil
}

// Option returns a reference to the option name. The reference is absent if
// the command has no such option.
func (c Command) Option(name string) OptRef {
	v, ok := c.options[name]
	if !ok {
		return OptRef{command: c, name: name}
	}
	return OptRef{command: c, name: name, present: true, value: v}
}

// Lookup returns references for all names, in the same order.
func (c Command) Lookup(names ...string) []OptRef {
	refs := make([]OptRef, len(names))
	for i, n := range names {
		refs[i] = c.Option(n)
	}
	return refs
}

// LookupStrict is like Lookup but fails if the command carries an option
// that is not listed in names.
func (c Command) LookupStrict(names ...string) ([]OptRef, error) {
	for _, k := range c.OptionNames() {
		if !slices.Contains(names, k) {
			return nil, &OptionError{Name: k, Err: ErrUnexpectedOption}
		}
	}
	return c.Lookup(names...), nil
}

// String renders the command in the argument grammar. Parameters always
// follow an explicit "--" so the output parses back into the same command.
func (c Command) String() string {
	var b strings.Builder
	b.WriteString(c.name)
	for _, k := range c.OptionNames() {
		b.WriteString(" --")
		b.WriteString(k)
		if v := c.options[k]; v != nil {
			b.WriteByte('=')
			b.WriteString(*v)
		}
	}
	if len(c.parameters) > 0 {
		b.WriteString(" --")
		for _, p := range c.parameters {
			b.WriteByte(' ')
			b.WriteString(p)
		}
	}
	return b.String()
}

func cloneValue(v *string) *string {
	if v == nil {
		return nil
	}
	s := *v
	return &s
}
