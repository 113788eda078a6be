package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfo(t *testing.T) {
	saved := Commit
	defer func() { Commit = saved }()

	Commit = ""
	assert.Equal(t, Version, Info())

	Commit = "3f2c1ab"
	assert.Equal(t, Version+"+3f2c1ab", Info())
}

func TestFullInfo(t *testing.T) {
	info := FullInfo()
	assert.True(t, strings.HasPrefix(info, "ila typed-logger analyzer "+Info()))
	assert.Contains(t, info, BuildID())
}

func TestBuildIDStable(t *testing.T) {
	first := BuildID()
	assert.NotEmpty(t, first)
	assert.Equal(t, first, BuildID())
}
