package channel

import (
	"bytes"
	"strconv"

	"github.com/pkg/errors"
)

// Length-tracked frames are written as "<len>|<body>" where len is the byte
// length of body. A single read may carry several frames or part of one.

// maxLengthDigits bounds the prefix so a stream without separators fails fast.
const maxLengthDigits = 10

var ErrBadFrame = errors.New("malformed length-tracked frame")

// EncodeFrame prefixes body with its length.
func EncodeFrame(body []byte) []byte {
	prefix := strconv.Itoa(len(body))
	out := make([]byte, 0, len(prefix)+1+len(body))
	out = append(out, prefix...)
	out = append(out, '|')
	return append(out, body...)
}

// FrameDecoder reassembles length-tracked frames across reads.
type FrameDecoder struct {
	buf []byte
}

// Feed appends chunk and returns every frame completed by it. On a malformed
// prefix the buffered bytes are discarded and ErrBadFrame is returned along
// with any frames decoded before the bad one.
func (d *FrameDecoder) Feed(chunk []byte) ([]string, error) {
	d.buf = append(d.buf, chunk...)
	var out []string
	for len(d.buf) > 0 {
		sep := bytes.IndexByte(d.buf, '|')
		if sep < 0 {
			if len(d.buf) > maxLengthDigits || !allDigits(d.buf) {
				d.buf = nil
				return out, ErrBadFrame
			}
			break
		}
		head := bytes.TrimSpace(d.buf[:sep])
		if len(head) == 0 || len(head) > maxLengthDigits || !allDigits(head) {
			d.buf = nil
			return out, errors.Wrapf(ErrBadFrame, "length prefix %q", head)
		}
		n, err := strconv.Atoi(string(head))
		if err != nil {
			d.buf = nil
			return out, errors.Wrap(ErrBadFrame, err.Error())
		}
		if len(d.buf)-(sep+1) < n {
			break
		}
		out = append(out, string(d.buf[sep+1:sep+1+n]))
		d.buf = d.buf[sep+1+n:]
	}
	if len(d.buf) == 0 {
		d.buf = nil
	}
	return out, nil
}

// Pending reports how many bytes are waiting for the rest of a frame.
func (d *FrameDecoder) Pending() int {
	return len(d.buf)
}

func allDigits(b []byte) bool {
	for _, c := range bytes.TrimSpace(b) {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
