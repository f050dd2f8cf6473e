//go:build !windows

package pidfile

import "github.com/google/renameio/v2"

func writeFile(path string, data []byte) error {
	return renameio.WriteFile(path, data, FileMode)
}
