package command

// OptRef is a reference to an option of a Command. It is either absent, or
// present with or without a value.
type OptRef struct {
	command Command
	name    string
	present bool
	value   *string
}

// Present reports whether the option was given.
func (o OptRef) Present() bool { return o.present }

// Name returns the option name.
func (o OptRef) Name() string { return o.name }

// Command returns the command the option belongs to.
func (o OptRef) Command() Command { return o.command }

// Value returns the option value and whether one was given.
func (o OptRef) Value() (string, bool) {
	if o.value == nil {
		return "", false
	}
	return *o.value, true
}

// PresentNoValue returns Present(), failing if the option carries a value.
func (o OptRef) PresentNoValue() (bool, error) {
	if o.present && o.value != nil {
		return true, o.requirement(ErrOptionRequiresNoValue)
	}
	return o.present, nil
}

// PresentWithValue returns Present(), failing if the option carries no value.
func (o OptRef) PresentWithValue() (bool, error) {
	if o.present && o.value == nil {
		return true, o.requirement(ErrOptionRequiresValue)
	}
	return o.present, nil
}

// MandatoryValue returns the value of an option that must be present with a
// value.
func (o OptRef) MandatoryValue() (string, error) {
	if !o.present {
		return "", o.requirement(ErrOptionMandatory)
	}
	if o.value == nil {
		return "", o.requirement(ErrOptionRequiresValue)
	}
	return *o.value, nil
}

// MandatoryNonEmpty is like MandatoryValue but also rejects an empty value.
func (o OptRef) MandatoryNonEmpty() (string, error) {
	v, err := o.MandatoryValue()
	if err != nil {
		return "", err
	}
	if v == "" {
		return "", o.requirement(ErrOptionRequiresNonEmpty)
	}
	return v, nil
}

func (o OptRef) requirement(err error) error {
	return &OptionError{Name: o.name, Err: err}
}
