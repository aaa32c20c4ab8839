package mysql

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestClip(t *testing.T) {
	assert.Equal(t, "short", clip("short", maxKeyLen))

	long := strings.Repeat("é", 300)
	got := clip(long, maxKeyLen)
	assert.Equal(t, maxKeyLen, utf8.RuneCountInString(got))
	assert.Equal(t, got, clip(got, maxKeyLen), "clipping twice changes nothing")
}
