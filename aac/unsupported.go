//go:build with_aac && !darwin

package aac

// CoreAudio AAC decoding requires macOS (darwin); there is no fallback
// decoder to drop into on this platform, so a with_aac cross-build should
// fail loudly at compile time instead of silently shipping a stub that
// always returns ErrNotSupported.
func init() {
	aacDecoderRequiresMacOS() // undefined: intentional compile error
}
