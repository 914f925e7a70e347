package codec

import (
	"errors"
	"fmt"
)

// ErrDecodedWithoutProgress is raised when a Decoder produces a message
// without having consumed any bytes from the accumulator — spec.md §4.4
// step 2's "did not read anything but decoded a message" guard against a
// runaway decode loop.
var ErrDecodedWithoutProgress = errors.New("codec: decoder produced a message without advancing the reader index")

// TooLongFrameException reports a frame (or discarded run) that exceeded
// the configured maximum length.
type TooLongFrameException struct {
	Length int
}

func (e *TooLongFrameException) Error() string {
	return fmt.Sprintf("codec: frame length %d exceeds configured maximum", e.Length)
}
