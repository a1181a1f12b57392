package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestSetupWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relaychat.log")
	logger, closer, err := Setup(Settings{Level: "debug", File: path})
	require.NoError(t, err)

	logger.Debug().Str("component", "test").Msg("hello")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"message":"hello"`)
	require.Contains(t, string(data), `"component":"test"`)
}

func TestSetupRejectsUnknownLevel(t *testing.T) {
	_, _, err := Setup(Settings{Level: "loud", Discard: true})
	require.Error(t, err)
}

func TestWatermillAdapter(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewWatermill(zerolog.New(&buf).Level(zerolog.TraceLevel))

	adapter.With(watermill.LogFields{"topic": "chat"}).Error("publish failed", errors.New("boom"), watermill.LogFields{"room": "lobby"})

	out := buf.String()
	require.Contains(t, out, `"topic":"chat"`)
	require.Contains(t, out, `"room":"lobby"`)
	require.Contains(t, out, `"error":"boom"`)
	require.Contains(t, out, `"component":"watermill"`)
}
