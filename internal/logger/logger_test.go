// SPDX-License-Identifier: Apache-2.0

package logger

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	log := NewLogger("test-role")

	require.NotNil(t, log)
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
}

func TestNop_DiscardsOutput(t *testing.T) {
	log := Nop()

	require.NotNil(t, log)
	// Must not panic and must not write anywhere.
	log.Info().Str("k", "v").Msg("discarded")
}

func TestGetChildLogger(t *testing.T) {
	parent := Nop()
	child := parent.GetChildLogger()

	require.NotNil(t, child)
	assert.NotSame(t, parent, child)
}

func TestFromContext_NoLoggerAttached(t *testing.T) {
	log := FromContext(context.Background())

	require.NotNil(t, log)
	log.Debug().Msg("global fallback logger")
}

func TestFromContext_RoundTrip(t *testing.T) {
	base := Nop()
	ctx := base.WithContext(context.Background())

	got := FromContext(ctx)
	require.NotNil(t, got)
	got.Info().Msg("logger recovered from context")
}
