//go:build !plugindyn || !linux

package plugin

import (
	"errors"
	"testing"

	"github.com/matryer/is"
)

func TestLoadDynamic_Unsupported(t *testing.T) {
	is := is.New(t)

	added, err := NewRegistry().LoadDynamic(t.TempDir())
	is.True(errors.Is(err, ErrDynamicUnsupported))
	is.Equal(len(added), 0)
}
