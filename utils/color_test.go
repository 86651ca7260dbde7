package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap(t *testing.T) {
	assert.True(t, strings.Contains(WrapInfo("FINISHED %d", 3), "[INFO] FINISHED 3"))
	assert.True(t, strings.Contains(WrapWarn("timeout"), "[WARN] timeout"))
	assert.True(t, strings.Contains(WrapError("boom"), "[ERROR] boom"))
	assert.True(t, strings.Contains(WrapData(2, "HTTP/1.1 200 OK"), "[#2] HTTP/1.1 200 OK"))
}

func TestIsTest(t *testing.T) {
	t.Setenv("EVENTQUEUE_ENV", "test")
	assert.True(t, IsTest())
	assert.Equal(t, "test", GetValueOnEnv("prod", "test"))

	t.Setenv("EVENTQUEUE_ENV", "")
	assert.False(t, IsTest())
	assert.Equal(t, "prod", GetValueOnEnv("prod", "test"))
}
