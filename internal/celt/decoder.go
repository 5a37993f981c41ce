package celt

import "github.com/oggopus/celtdec/internal/rangecoding"

// Decoder decodes CELT frames from an Opus packet.
// It maintains state across frames for proper audio continuity via overlap-add
// synthesis and energy prediction.
//
// CELT is the transform-based layer of Opus, using the Modified Discrete Cosine
// Transform (MDCT) for music and general audio. The decoder reconstructs audio by:
// 1. Decoding energy envelope (coarse + fine quantization)
// 2. Decoding normalized band shapes via PVQ
// 3. Applying denormalization (scaling by energy)
// 4. Performing IMDCT synthesis with overlap-add
// 5. Applying de-emphasis filter
//
// Reference: RFC 6716 Section 4.3
type Decoder struct {
	// Configuration
	channels   int // 1 or 2
	sampleRate int // Output sample rate (typically 48000)

	// Range decoder (set per frame)
	rangeDecoder *rangecoding.Decoder

	// Energy state (persists across frames for inter-frame prediction)
	prevEnergy  []float64 // Previous frame band energies [MaxBands * channels]
	prevEnergy2 []float64 // Two frames ago energies (for anti-collapse)

	// Synthesis state (persists for overlap-add)
	overlapBuffer []float64 // Previous frame overlap tail [Overlap * channels]
	preemphState  []float64 // De-emphasis filter state [channels]

	// Postfilter state (pitch-based comb filter). Old/current pairs let the
	// comb filter cross-fade across the frame boundary (spec 4.8).
	postfilterPeriod    int     // Pitch period for comb filter, current frame
	postfilterGain      float64 // Comb filter gain, current frame
	postfilterTapset    int     // Filter tap configuration (0, 1, or 2), current frame
	postfilterPeriodOld int     // Pitch period carried from the previous frame
	postfilterGainOld   float64 // Comb filter gain carried from the previous frame
	postfilterTapsetOld int     // Tap configuration carried from the previous frame
	postfilterMem       []float64

	// Error recovery / deterministic randomness
	rng uint32 // RNG state for PLC and folding

	// Band processing state
	collapseMask uint32 // Tracks which bands received pulses (for anti-collapse)

	// prevLogE/prevLogE2 track the background-noise floor used by
	// anti-collapse and coarse-energy prediction (spec DecoderState).
	prevLogE  []float64
	prevLogE2 []float64

	start, end int // coded band range; end is always MaxBands per spec invariant

	bandwidth CELTBandwidth // signaled audio bandwidth, caps effective band count

	decodeFrameIndex uint64
}

// NewDecoder creates a new CELT decoder with the given number of channels.
// Valid channel counts are 1 (mono) or 2 (stereo).
// The decoder is ready to process CELT frames after creation.
func NewDecoder(channels int) *Decoder {
	if channels < 1 {
		channels = 1
	}
	if channels > 2 {
		channels = 2
	}

	d := &Decoder{
		channels:   channels,
		sampleRate: 48000, // CELT always operates at 48kHz internally

		// Allocate energy arrays for all bands and channels
		prevEnergy:  make([]float64, MaxBands*channels),
		prevEnergy2: make([]float64, MaxBands*channels),

		// Overlap buffer for IMDCT overlap-add
		// Size is Overlap (120) samples per channel
		overlapBuffer: make([]float64, Overlap*channels),

		// De-emphasis filter state, one per channel
		preemphState: make([]float64, channels),

		prevLogE:  make([]float64, MaxBands*channels),
		prevLogE2: make([]float64, MaxBands*channels),

		start:     0,
		end:       MaxBands,
		bandwidth: CELTFullband,

		// Initialize RNG with non-zero seed
		rng: 22222,
	}

	// Initialize energy arrays to reasonable defaults
	// Using negative infinity would cause issues; use small energy instead
	for i := range d.prevEnergy {
		d.prevEnergy[i] = -28.0 // Low but finite starting energy
		d.prevEnergy2[i] = -28.0
		d.prevLogE[i] = -28.0
		d.prevLogE2[i] = -28.0
	}

	return d
}

// Reset clears decoder state for a new stream.
// Call this when starting to decode a new audio stream.
func (d *Decoder) Reset() {
	// Clear energy arrays
	for i := range d.prevEnergy {
		d.prevEnergy[i] = -28.0
		d.prevEnergy2[i] = -28.0
		d.prevLogE[i] = -28.0
		d.prevLogE2[i] = -28.0
	}

	// Clear overlap buffer
	for i := range d.overlapBuffer {
		d.overlapBuffer[i] = 0
	}

	// Clear de-emphasis state
	for i := range d.preemphState {
		d.preemphState[i] = 0
	}

	// Reset postfilter
	d.resetPostfilterState()

	// Reset RNG
	d.rng = 22222

	d.start = 0
	d.end = MaxBands
	d.bandwidth = CELTFullband

	// Clear range decoder reference
	d.rangeDecoder = nil
}

// SetBandwidth sets the signaled audio bandwidth, which caps how many
// bands the next frame codes regardless of frame size.
func (d *Decoder) SetBandwidth(bw CELTBandwidth) {
	d.bandwidth = bw
}

// Bandwidth returns the currently signaled audio bandwidth.
func (d *Decoder) Bandwidth() CELTBandwidth {
	return d.bandwidth
}

// SetRangeDecoder sets the range decoder for the current frame.
// This must be called before decoding each frame.
func (d *Decoder) SetRangeDecoder(rd *rangecoding.Decoder) {
	d.rangeDecoder = rd
}

// RangeDecoder returns the current range decoder.
func (d *Decoder) RangeDecoder() *rangecoding.Decoder {
	return d.rangeDecoder
}

// Channels returns the number of audio channels (1 or 2).
func (d *Decoder) Channels() int {
	return d.channels
}

// SampleRate returns the output sample rate (always 48000 for CELT).
func (d *Decoder) SampleRate() int {
	return d.sampleRate
}

// PrevEnergy returns the previous frame's band energies.
// Used for inter-frame energy prediction in coarse energy decoding.
// Layout: [band0_ch0, band1_ch0, ..., band20_ch0, band0_ch1, ..., band20_ch1]
func (d *Decoder) PrevEnergy() []float64 {
	return d.prevEnergy
}

// PrevEnergy2 returns the band energies from two frames ago.
// Used for anti-collapse detection.
func (d *Decoder) PrevEnergy2() []float64 {
	return d.prevEnergy2
}

// SetPrevEnergy copies the given energies to the previous energy buffer.
// Also shifts current prev to prev2.
func (d *Decoder) SetPrevEnergy(energies []float64) {
	// Shift: current prev becomes prev2
	copy(d.prevEnergy2, d.prevEnergy)
	// Copy new energies to prev
	copy(d.prevEnergy, energies)
}

// OverlapBuffer returns the overlap buffer for IMDCT overlap-add.
// Size is Overlap * channels samples.
func (d *Decoder) OverlapBuffer() []float64 {
	return d.overlapBuffer
}

// SetOverlapBuffer copies the given samples to the overlap buffer.
func (d *Decoder) SetOverlapBuffer(samples []float64) {
	copy(d.overlapBuffer, samples)
}

// PreemphState returns the de-emphasis filter state.
// One value per channel.
func (d *Decoder) PreemphState() []float64 {
	return d.preemphState
}

// PostfilterPeriod returns the pitch period for the postfilter.
func (d *Decoder) PostfilterPeriod() int {
	return d.postfilterPeriod
}

// PostfilterGain returns the comb filter gain.
func (d *Decoder) PostfilterGain() float64 {
	return d.postfilterGain
}

// PostfilterTapset returns the filter tap configuration.
func (d *Decoder) PostfilterTapset() int {
	return d.postfilterTapset
}

// SetPostfilter sets the postfilter parameters.
// plcPitchLagMax bounds the decoded comb-filter pitch period defensively;
// the bitstream format itself permits values the reference implementation
// does not validate.
const plcPitchLagMax = 720

func (d *Decoder) SetPostfilter(period int, gain float64, tapset int) {
	if period > plcPitchLagMax {
		period = plcPitchLagMax
	}
	d.postfilterPeriod = period
	d.postfilterGain = gain
	d.postfilterTapset = tapset
}

// RNG returns the current RNG state.
func (d *Decoder) RNG() uint32 {
	return d.rng
}

// SetRNG sets the RNG state.
func (d *Decoder) SetRNG(seed uint32) {
	d.rng = seed
}

// NextRNG advances the RNG and returns the new value.
// Uses the same LCG as libopus for deterministic behavior.
func (d *Decoder) NextRNG() uint32 {
	d.rng = d.rng*1664525 + 1013904223
	return d.rng
}

// GetEnergy returns the energy for a specific band and channel from prevEnergy.
func (d *Decoder) GetEnergy(band, channel int) float64 {
	if band < 0 || band >= MaxBands || channel < 0 || channel >= d.channels {
		return 0
	}
	return d.prevEnergy[channel*MaxBands+band]
}

// SetEnergy sets the energy for a specific band and channel.
func (d *Decoder) SetEnergy(band, channel int, energy float64) {
	if band < 0 || band >= MaxBands || channel < 0 || channel >= d.channels {
		return
	}
	d.prevEnergy[channel*MaxBands+band] = energy
}
