// stream_decoder.go implements a stateful Ogg Opus stream decoder that
// scans for page sync, parses the identification and comment headers, and
// decodes audio frames from a CELT-only Ogg Opus stream.

package gopus

import (
	"bufio"
	"io"

	"github.com/oggopus/celtdec/container/ogg"
)

// StreamState tracks where a StreamDecoder is in consuming its input.
type StreamState int

const (
	// StateSearching is scanning the input for the Ogg capture pattern
	// ("OggS") that starts the first page of a stream.
	StateSearching StreamState = iota

	// StateParsingPage has found stream sync and is parsing the
	// identification (OpusHead) and comment (OpusTags) headers.
	StateParsingPage

	// StateFrame is steady-state: headers are parsed and Decode yields
	// PCM audio one packet at a time.
	StateFrame
)

// StreamDecoder decodes a CELT-only Ogg Opus byte stream.
//
// Use NewStreamDecoder to open a stream (this scans for sync and parses
// the OpusHead/OpusTags headers), then call Decode repeatedly to pull
// PCM audio until io.EOF.
type StreamDecoder struct {
	state   StreamState
	reader  *ogg.Reader
	decoder *Decoder

	preSkip       int // samples at 48kHz still to discard from the front
	outputSamples int64
}

// NewStreamDecoder scans r for the start of an Ogg Opus stream, parses its
// OpusHead and OpusTags pages, and returns a StreamDecoder ready to decode
// audio frames.
//
// Returns ErrSyncNotFound if no Ogg capture pattern is found within the
// stream's first megabyte. An OpusHead that advertises more than stereo
// output or a non-zero channel mapping family is rejected by ogg.NewReader
// with ogg.ErrInvalidHeader.
func NewStreamDecoder(r io.Reader) (*StreamDecoder, error) {
	br := bufio.NewReaderSize(r, 64*1024)

	sd := &StreamDecoder{state: StateSearching}

	if err := findSyncWord(br); err != nil {
		return nil, err
	}

	sd.state = StateParsingPage
	oggReader, err := ogg.NewReader(br)
	if err != nil {
		return nil, err
	}

	if oggReader.Header.Channels > 2 || oggReader.Header.MappingFamily != 0 {
		return nil, ErrExtraChannelsUnsupported
	}

	dec, err := NewDecoder(48000, int(oggReader.Header.Channels))
	if err != nil {
		return nil, err
	}

	sd.reader = oggReader
	sd.decoder = dec
	sd.preSkip = int(oggReader.Header.PreSkip)
	sd.state = StateFrame

	return sd, nil
}

// maxSyncScan bounds how far findSyncWord will read while searching for
// the Ogg capture pattern before giving up.
const maxSyncScan = 1 << 20

// findSyncWord advances br past any leading bytes until the 4-byte Ogg
// capture pattern "OggS" is found at the current read position, leaving
// br positioned so the pattern is the next bytes read.
func findSyncWord(br *bufio.Reader) error {
	const pattern = "OggS"
	scanned := 0
	for scanned < maxSyncScan {
		peek, err := br.Peek(4)
		if len(peek) == 4 && string(peek) == pattern {
			return nil
		}
		if err != nil {
			if err == io.EOF || err == bufio.ErrBufferFull {
				return ErrSyncNotFound
			}
			return err
		}
		if _, err := br.Discard(1); err != nil {
			return ErrSyncNotFound
		}
		scanned++
	}
	return ErrSyncNotFound
}

// State returns the decoder's current position in the SEARCHING /
// PARSE_PAGE / FRAME state machine.
func (sd *StreamDecoder) State() StreamState {
	return sd.state
}

// Channels returns the stream's output channel count.
func (sd *StreamDecoder) Channels() int {
	if sd.decoder == nil {
		return 0
	}
	return sd.decoder.Channels()
}

// SampleRate returns the output sample rate, always 48000 for this
// decoder.
func (sd *StreamDecoder) SampleRate() int {
	return 48000
}

// BitsPerSample returns the PCM sample depth, always 16.
func (sd *StreamDecoder) BitsPerSample() int {
	return 16
}

// OutputSamples returns the total number of samples per channel produced
// so far, after pre-skip trimming.
func (sd *StreamDecoder) OutputSamples() int64 {
	return sd.outputSamples
}

// StreamTitle returns the TITLE comment from the stream's OpusTags page,
// or the empty string if none was present.
func (sd *StreamDecoder) StreamTitle() string {
	if sd.reader == nil || sd.reader.Tags == nil {
		return ""
	}
	for _, key := range []string{"TITLE", "title", "Title"} {
		if v, ok := sd.reader.Tags.Comments[key]; ok {
			return v
		}
	}
	return ""
}

// Decode reads and decodes the next Opus packet from the stream, returning
// its PCM samples (interleaved if stereo) with the stream's pre-skip
// region already trimmed off the front of the output.
//
// Returns io.EOF once the stream is exhausted. Returns ErrSilkUnsupported
// or ErrHybridUnsupported if a packet's TOC selects a mode this decoder
// cannot decode; callers that need to tolerate such streams should treat
// these as fatal for the remainder of the stream, per the CELT-only scope
// of this decoder.
func (sd *StreamDecoder) Decode() ([]float32, error) {
	if sd.state != StateFrame {
		return nil, ErrDecoderAsync
	}

	packet, _, err := sd.reader.ReadPacket()
	if err != nil {
		return nil, err
	}

	samples, err := sd.decoder.DecodeFloat32(packet)
	if err != nil {
		return nil, err
	}

	if sd.preSkip > 0 {
		channels := sd.decoder.Channels()
		skipSamples := sd.preSkip
		frameSamples := len(samples) / channels
		if skipSamples > frameSamples {
			skipSamples = frameSamples
		}
		samples = samples[skipSamples*channels:]
		sd.preSkip -= skipSamples
	}

	sd.outputSamples += int64(len(samples) / sd.decoder.Channels())
	return samples, nil
}
