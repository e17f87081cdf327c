package utils_test

import (
	"testing"
	"time"

	"github.com/canopy-network/addrhistory/pkg/utils"
	"github.com/stretchr/testify/assert"
)

func TestEnvHelpers(t *testing.T) {
	t.Setenv("T_STR", "value")
	t.Setenv("T_INT", "42")
	t.Setenv("T_INT_BAD", "x")
	t.Setenv("T_INT64_ZERO", "0")
	t.Setenv("T_BOOL", "false")
	t.Setenv("T_DUR", "90s")
	t.Setenv("T_FLOAT", "2.5")

	assert.Equal(t, "value", utils.Env("T_STR", "def"))
	assert.Equal(t, "def", utils.Env("T_MISSING", "def"))
	assert.Equal(t, 42, utils.EnvInt("T_INT", 1))
	assert.Equal(t, 1, utils.EnvInt("T_INT_BAD", 1))
	assert.Equal(t, int64(0), utils.EnvInt64("T_INT64_ZERO", 7))
	assert.False(t, utils.EnvBool("T_BOOL", true))
	assert.True(t, utils.EnvBool("T_MISSING", true))
	assert.Equal(t, 90*time.Second, utils.EnvDuration("T_DUR", time.Second))
	assert.Equal(t, 2.5, utils.EnvFloat("T_FLOAT", 1))
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "abc", utils.Snippet([]byte("  abc \n"), 10))
	assert.Equal(t, "ab...", utils.Snippet([]byte("abcdef"), 2))
}
