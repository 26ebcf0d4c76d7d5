package frame

import "errors"

// Transport/protocol error taxonomy for the frame codec (spec §4.1, §7).
var (
	// ErrFrameTooShort is returned when a connection hits EOF mid-frame.
	ErrFrameTooShort = errors.New("frame: truncated frame (EOF mid-frame)")

	// ErrFrameOversize is returned when a declared length exceeds the
	// configured cap. Returned before the buffer is allocated.
	ErrFrameOversize = errors.New("frame: frame exceeds size cap")

	// ErrZeroLength is returned for a zero-length frame, a protocol error.
	ErrZeroLength = errors.New("frame: zero-length frame")

	// ErrInvalidUTF8 is returned when frame contents are not valid UTF-8.
	ErrInvalidUTF8 = errors.New("frame: invalid utf-8")

	// ErrInvalidJSON is returned when frame contents fail to decode as JSON.
	ErrInvalidJSON = errors.New("frame: invalid json")

	// ErrMissingContentLength is returned when a Content-Length header is
	// absent or unparsable.
	ErrMissingContentLength = errors.New("frame: missing or unparsable Content-Length header")
)
