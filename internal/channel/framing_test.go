package channel

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestEncodeFrame(t *testing.T) {
	require.Equal(t, "5|hello", string(EncodeFrame([]byte("hello"))))
	require.Equal(t, "0|", string(EncodeFrame(nil)))
}

func TestFrameDecoderCoalescedFrames(t *testing.T) {
	var d FrameDecoder
	chunk := append(EncodeFrame([]byte(`{"a":1}`)), EncodeFrame([]byte("xy"))...)

	frames, err := d.Feed(chunk)
	require.NoError(t, err)
	require.Equal(t, []string{`{"a":1}`, "xy"}, frames)
	require.Zero(t, d.Pending())
}

func TestFrameDecoderSplitFrames(t *testing.T) {
	var d FrameDecoder
	full := EncodeFrame([]byte("hello world"))

	frames, err := d.Feed(full[:1])
	require.NoError(t, err)
	require.Empty(t, frames)

	frames, err = d.Feed(full[1:6])
	require.NoError(t, err)
	require.Empty(t, frames)
	require.Equal(t, 6, d.Pending())

	frames, err = d.Feed(full[6:])
	require.NoError(t, err)
	require.Equal(t, []string{"hello world"}, frames)
}

func TestFrameDecoderMultibyteLength(t *testing.T) {
	var d FrameDecoder
	frames, err := d.Feed(EncodeFrame([]byte("héllo")))
	require.NoError(t, err)
	require.Equal(t, []string{"héllo"}, frames)
}

func TestFrameDecoderRejectsGarbage(t *testing.T) {
	var d FrameDecoder
	frames, err := d.Feed([]byte("2|okabc|nope"))
	require.True(t, errors.Is(err, ErrBadFrame))
	require.Equal(t, []string{"ok"}, frames)
	require.Zero(t, d.Pending())

	frames, err = d.Feed([]byte("not a frame at all"))
	require.True(t, errors.Is(err, ErrBadFrame))
	require.Empty(t, frames)

	frames, err = d.Feed([]byte("3|abc"))
	require.NoError(t, err)
	require.Equal(t, []string{"abc"}, frames)
}
