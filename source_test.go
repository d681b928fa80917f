package dualcam

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenerDirectory(t *testing.T) {
	src, err := PathRef(t.TempDir()).Opener()()
	require.NoError(t, err)
	defer src.Close()

	_, ok := src.(*folderSource)
	assert.True(t, ok, "an existing directory opens as a watched folder")
}

func TestOpenerZeroRef(t *testing.T) {
	_, err := (SourceRef{}).Opener()()
	assert.ErrorIs(t, err, ErrNoSource)
}
