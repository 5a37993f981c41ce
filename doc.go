// Package gopus implements a CELT-only Opus decoder in pure Go.
//
// Opus packets can carry audio coded with SILK (speech-optimized), CELT
// (music-optimized, full 48kHz bandwidth), or a hybrid of the two. This
// decoder implements the CELT path only: it always produces 48kHz PCM
// output and rejects packets whose TOC byte selects SILK or hybrid
// coding rather than attempting to decode them.
//
// It requires no cgo dependencies.
//
// # Packet Structure
//
// Each Opus packet starts with a TOC (Table of Contents) byte:
//   - Bits 7-3: Configuration (0-31)
//   - Bit 2: Stereo flag
//   - Bits 1-0: Frame count code (0-3)
//
// Use ParseTOC to extract these fields. Decode and its variants handle
// splitting a packet's frame count code into individual CELT frames
// internally.
//
// # Ogg Opus Streams
//
// NewStreamDecoder wraps an io.Reader carrying an Ogg Opus stream,
// scanning for the stream's sync pattern, parsing its OpusHead and
// OpusTags pages, and decoding packets into PCM as they're read.
package gopus
