//go:build windows

package pidfile

import "os"

// renameio does not support Windows.
func writeFile(path string, data []byte) error {
	return os.WriteFile(path, data, FileMode)
}
