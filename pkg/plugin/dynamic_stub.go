//go:build !plugindyn || !linux

package plugin

// LoadDynamic reports ErrDynamicUnsupported; build with -tags=plugindyn on Linux.
func (r *Registry) LoadDynamic(dir string) ([]*Plugin, error) {
	return nil, ErrDynamicUnsupported
}
