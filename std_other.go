//go:build !unix

package prog

import (
	"errors"
	"runtime"
)

var errDetachUnsupported = errors.New("detaching is not supported on " + runtime.GOOS)

func newStd() *std { return &std{} }

func (*std) Fork() (bool, error) { return false, errDetachUnsupported }

func (*std) Umask(int) int { return 0 }

func (*std) Setsid() error { return errDetachUnsupported }

func (*std) Close(int) error { return errDetachUnsupported }
