package aac

import "errors"

// ErrNotSupported is returned when AAC decoding is not available on this
// build. A batch scan run without CoreAudio still produces a verdict for
// the AAC file — just one built entirely from the decode_failed flag, with
// no spectral evidence to back it up.
// Build with -tags=with_aac on macOS to enable CoreAudio AAC support.
var ErrNotSupported = errors.New("aac: not supported (build with -tags=with_aac on macOS)")
