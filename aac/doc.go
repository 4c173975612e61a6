// Package aac provides AAC decoding via Apple CoreAudio (macOS only). It is
// the one codec provider this analyzer cannot offer everywhere: no pack
// dependency gives it a pure-Go AAC decode path, so an AAC input on a
// non-Darwin build folds straight into FlagDecodeFailed rather than a
// partial/best-effort decode.
//
// This package requires the "with_aac" build tag and CGO_ENABLED=1 on macOS.
// Without the build tag, Decode returns ErrNotSupported.
// Using the build tag on non-macOS platforms is a compile error.
package aac
