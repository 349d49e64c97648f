// pkg/platform/registry.go - thin registry adapter over the local machine hive.

package platform

import (
	"golang.org/x/sys/windows/registry"
)

// Registry reads and mutates values under HKEY_LOCAL_MACHINE. The engine
// packages consume it through their own narrow interfaces so tests can
// substitute fakes.
type Registry struct{}

// ReadString reads a REG_SZ value.
func (Registry) ReadString(keyPath, valueName string) (string, error) {
	k, err := registry.OpenKey(registry.LOCAL_MACHINE, keyPath, registry.QUERY_VALUE)
	if err != nil {
		return "", err
	}
	defer k.Close()

	val, _, err := k.GetStringValue(valueName)
	if err != nil {
		return "", err
	}
	return val, nil
}

// ReadInteger reads a REG_DWORD/REG_QWORD value.
func (Registry) ReadInteger(keyPath, valueName string) (uint64, error) {
	k, err := registry.OpenKey(registry.LOCAL_MACHINE, keyPath, registry.QUERY_VALUE)
	if err != nil {
		return 0, err
	}
	defer k.Close()

	val, _, err := k.GetIntegerValue(valueName)
	if err != nil {
		return 0, err
	}
	return val, nil
}

// WriteDword writes a REG_DWORD value, creating the key if needed.
func (Registry) WriteDword(keyPath, valueName string, value uint32) error {
	k, _, err := registry.CreateKey(registry.LOCAL_MACHINE, keyPath, registry.SET_VALUE)
	if err != nil {
		return err
	}
	defer k.Close()

	return k.SetDWordValue(valueName, value)
}

// WriteString writes a REG_SZ value, creating the key if needed.
func (Registry) WriteString(keyPath, valueName, value string) error {
	k, _, err := registry.CreateKey(registry.LOCAL_MACHINE, keyPath, registry.SET_VALUE)
	if err != nil {
		return err
	}
	defer k.Close()

	return k.SetStringValue(valueName, value)
}

// DeleteValue removes a value from a key. Deleting a value that does not
// exist is not an error.
func (Registry) DeleteValue(keyPath, valueName string) error {
	k, err := registry.OpenKey(registry.LOCAL_MACHINE, keyPath, registry.SET_VALUE)
	if err != nil {
		if err == registry.ErrNotExist {
			return nil
		}
		return err
	}
	defer k.Close()

	if err := k.DeleteValue(valueName); err != nil && err != registry.ErrNotExist {
		return err
	}
	return nil
}

// NotExist reports whether err means the key or value was absent.
func NotExist(err error) bool {
	return err == registry.ErrNotExist
}
