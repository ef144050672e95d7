package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserAgent(t *testing.T) {
	orig := version
	t.Cleanup(func() { version = orig })

	version = "1.4.2"
	assert.Equal(t, "1.4.2", Version())
	assert.Equal(t, "directupdate/1.4.2", UserAgent())
}
