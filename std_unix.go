//go:build unix

package prog

import (
	"os"
	"os/exec"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// generationEnv carries the fork generation to a re-executed program. It is
// removed from the environment as soon as it is read so that programs started
// by the daemon do not inherit it.
const generationEnv = "PROG_DETACH_GENERATION"

func newStd() *std {
	gen, err := strconv.Atoi(os.Getenv(generationEnv))
	if err != nil || gen < 0 {
		gen = 0
	}
	_ = os.Unsetenv(generationEnv)
	return &std{generation: gen}
}

// Fork re-executes the program with the same arguments. The child runs main
// from the start and skips the steps its ancestors already performed.
func (s *std) Fork() (bool, error) {
	exe, err := os.Executable()
	if err != nil {
		return false, err
	}

	cmd := exec.Command(exe)
	cmd.Args = os.Args
	cmd.Env = append(withoutEnv(os.Environ(), generationEnv), generationEnv+"="+strconv.Itoa(s.generation+1))
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr

	if err := cmd.Start(); err != nil {
		return false, err
	}
	_ = cmd.Process.Release()
	return true, nil
}

func (*std) Umask(mask int) int { return unix.Umask(mask) }

func (*std) Setsid() error {
	_, err := unix.Setsid()
	return err
}

func (*std) Close(fd int) error { return unix.Close(fd) }

func withoutEnv(env []string, key string) []string {
	out := env[:0:0]
	for _, kv := range env {
		if strings.HasPrefix(kv, key+"=") {
			continue
		}
		out = append(out, kv)
	}
	return out
}
