// decoder.go implements the public Decoder API for Opus decoding.

package gopus

import (
	"github.com/oggopus/celtdec/internal/celt"
)

// Decoder decodes Opus packets into PCM audio samples.
//
// A Decoder instance maintains internal state and is NOT safe for
// concurrent use. Each goroutine should create its own Decoder instance.
//
// This decoder implements the CELT-only portion of the Opus codec.
// Packets whose TOC byte selects a SILK or hybrid configuration are
// rejected with ErrSilkUnsupported / ErrHybridUnsupported rather than
// decoded.
type Decoder struct {
	celtDecoder   *celt.Decoder
	sampleRate    int
	channels      int
	lastFrameSize int
}

// NewDecoder creates a new Opus decoder.
//
// sampleRate must be one of: 8000, 12000, 16000, 24000, 48000. The CELT
// decoder always synthesizes at 48kHz internally regardless of this
// value; sampleRate is carried only as stream metadata.
// channels must be 1 (mono) or 2 (stereo).
func NewDecoder(sampleRate, channels int) (*Decoder, error) {
	if !validSampleRate(sampleRate) {
		return nil, ErrInvalidSampleRate
	}
	if channels < 1 || channels > 2 {
		return nil, ErrInvalidChannels
	}

	return &Decoder{
		celtDecoder:   celt.NewDecoder(channels),
		sampleRate:    sampleRate,
		channels:      channels,
		lastFrameSize: 960, // Default 20ms at 48kHz
	}, nil
}

// Decode decodes an Opus packet into float32 PCM samples.
//
// data: Opus packet data, or nil for Packet Loss Concealment (PLC).
// pcm: Output buffer for decoded samples. Must be large enough to hold
// frameSize * channels samples, where frameSize is determined from the
// packet TOC (or, for a nil packet, the last decoded frame size).
//
// A packet may carry more than one frame (TOC frame codes 1-3); Decode
// concatenates their output and returns the total number of samples per
// channel across all of them.
//
// Returns ErrSilkUnsupported or ErrHybridUnsupported if the packet's TOC
// selects a mode this decoder does not implement.
func (d *Decoder) Decode(data []byte, pcm []float32) (int, error) {
	if len(data) == 0 {
		samples, err := d.decodeCELT(nil, d.lastFrameSize)
		if err != nil {
			return 0, err
		}
		if len(pcm) < len(samples) {
			return 0, ErrBufferTooSmall
		}
		copy(pcm, samples)
		return d.lastFrameSize, nil
	}

	toc := ParseTOC(data[0])
	switch toc.Mode {
	case ModeSILK:
		return 0, ErrSilkUnsupported
	case ModeHybrid:
		return 0, ErrHybridUnsupported
	case ModeCELT:
		// fall through
	default:
		return 0, ErrInvalidMode
	}

	frames, err := splitFrames(toc, data[1:])
	if err != nil {
		return 0, err
	}

	needed := toc.FrameSize * d.channels * len(frames)
	if len(pcm) < needed {
		return 0, ErrBufferTooSmall
	}

	d.celtDecoder.SetBandwidth(toCeltBandwidth(toc.Bandwidth))

	offset := 0
	for _, frame := range frames {
		samples, err := d.decodeCELT(frame, toc.FrameSize)
		if err != nil {
			return 0, err
		}
		copy(pcm[offset:], samples)
		offset += len(samples)
	}

	d.lastFrameSize = toc.FrameSize
	return toc.FrameSize * len(frames), nil
}

// DecodeInt16 decodes an Opus packet into int16 PCM samples.
//
// data: Opus packet data, or nil for PLC.
// pcm: Output buffer for decoded samples.
//
// The samples are converted from float32 with proper clamping to
// [-32768, 32767].
func (d *Decoder) DecodeInt16(data []byte, pcm []int16) (int, error) {
	pcm32 := make([]float32, len(pcm))
	n, err := d.Decode(data, pcm32)
	if err != nil {
		return 0, err
	}

	for i := 0; i < n*d.channels; i++ {
		scaled := pcm32[i] * 32767.0
		if scaled > 32767 {
			pcm[i] = 32767
		} else if scaled < -32768 {
			pcm[i] = -32768
		} else {
			pcm[i] = int16(scaled)
		}
	}

	return n, nil
}

// DecodeFloat32 decodes an Opus packet and returns a new float32 slice.
//
// This is a convenience method that allocates the output buffer. For
// performance-critical code, use Decode with a pre-allocated buffer.
func (d *Decoder) DecodeFloat32(data []byte) ([]float32, error) {
	frameSize := d.lastFrameSize
	frameCount := 1
	if len(data) > 0 {
		toc := ParseTOC(data[0])
		frameSize = toc.FrameSize
		switch toc.FrameCode {
		case 1, 2:
			frameCount = 2
		case 3:
			if len(data) > 1 {
				frameCount = int(data[1] & 0x3F)
				if frameCount == 0 {
					frameCount = 1
				}
			}
		}
	}

	pcm := make([]float32, frameSize*d.channels*frameCount)
	n, err := d.Decode(data, pcm)
	if err != nil {
		return nil, err
	}

	return pcm[:n*d.channels], nil
}

// DecodeInt16Slice decodes an Opus packet and returns a new int16 slice.
//
// This is a convenience method that allocates the output buffer. For
// performance-critical code, use DecodeInt16 with a pre-allocated buffer.
func (d *Decoder) DecodeInt16Slice(data []byte) ([]int16, error) {
	pcm32, err := d.DecodeFloat32(data)
	if err != nil {
		return nil, err
	}

	pcm := make([]int16, len(pcm32))
	for i, s := range pcm32 {
		scaled := s * 32767.0
		switch {
		case scaled > 32767:
			pcm[i] = 32767
		case scaled < -32768:
			pcm[i] = -32768
		default:
			pcm[i] = int16(scaled)
		}
	}
	return pcm, nil
}

// Reset clears the decoder state for a new stream.
// Call this when starting to decode a new audio stream.
func (d *Decoder) Reset() {
	d.celtDecoder.Reset()
	d.lastFrameSize = 960
}

// Channels returns the number of audio channels (1 or 2).
func (d *Decoder) Channels() int {
	return d.channels
}

// SampleRate returns the sample rate in Hz.
func (d *Decoder) SampleRate() int {
	return d.sampleRate
}

// BitsPerSample returns the PCM sample depth produced by this decoder.
// CELT decoding always yields 16-bit output.
func (d *Decoder) BitsPerSample() int {
	return 16
}

// decodeCELT routes to the CELT decoder and converts its float64 output
// to float32.
func (d *Decoder) decodeCELT(data []byte, frameSize int) ([]float32, error) {
	samples, err := d.celtDecoder.DecodeFrame(data, frameSize)
	if err != nil {
		return nil, err
	}
	result := make([]float32, len(samples))
	for i, s := range samples {
		result[i] = float32(s)
	}
	return result, nil
}

// toCeltBandwidth maps the TOC's bandwidth field onto the CELT package's
// own bandwidth enum, which caps how many bands a frame may code.
func toCeltBandwidth(bw Bandwidth) celt.CELTBandwidth {
	switch bw {
	case BandwidthNarrowband:
		return celt.CELTNarrowband
	case BandwidthWideband:
		return celt.CELTWideband
	case BandwidthSuperwideband:
		return celt.CELTSuperwideband
	case BandwidthFullband:
		return celt.CELTFullband
	default:
		return celt.CELTFullband
	}
}
