package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersion(t *testing.T) {
	maj, min, pat, s := Version()
	assert.Equal(t, 0, maj)
	assert.Equal(t, 4, min)
	assert.Equal(t, 3, pat)
	assert.Equal(t, "0.4.3", s)
}
