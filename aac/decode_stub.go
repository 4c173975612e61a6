//go:build !with_aac

package aac

import (
	"io"

	"github.com/mycophonic/transcodescan"
)

// Decode returns ErrNotSupported when built without the with_aac tag, which
// decoder.ProviderFor's caller wraps into the same FlagDecodeFailed path
// as any other unreadable file.
func Decode(_ io.ReadSeeker) ([]byte, transcodescan.PCMFormat, error) {
	return nil, transcodescan.PCMFormat{}, ErrNotSupported
}
