// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"runtime"
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriteVersion(t *testing.T) {
	var buf bytes.Buffer
	writeVersion(&buf, "v1.2.0", nil)
	assert.Equal(t, "gift-engine v1.2.0 ("+runtime.Version()+")\n", buf.String())

	buf.Reset()
	writeVersion(&buf, "dev", &debug.BuildInfo{Settings: []debug.BuildSetting{
		{Key: "vcs.time", Value: "2026-10-01T00:00:00Z"},
		{Key: "vcs.revision", Value: "abc123"},
	}})
	assert.Contains(t, buf.String(), "gift-engine dev")
	assert.Contains(t, buf.String(), "revision abc123\n")
	assert.NotContains(t, buf.String(), "vcs.time")
}
