package celt

import "fmt"

// CELT supports four frame durations, indexed throughout the bitstream by
// "LM" (log2 of the duration relative to the 2.5ms base unit). Everything
// here is a lookup against that 4-entry table rather than a live
// computation — the shapes are fixed by RFC 6716, not derived at runtime.

// ModeConfig holds the frame-size-dependent constants needed to set up a
// CELT frame's MDCT and band layout.
type ModeConfig struct {
	FrameSize   int
	ShortBlocks int
	LM          int
	EffBands    int
	MDCTSize    int
}

var modesByLM = [4]ModeConfig{
	{FrameSize: 120, ShortBlocks: 1, LM: 0, EffBands: 13, MDCTSize: 120},
	{FrameSize: 240, ShortBlocks: 2, LM: 1, EffBands: 17, MDCTSize: 240},
	{FrameSize: 480, ShortBlocks: 4, LM: 2, EffBands: 19, MDCTSize: 480},
	{FrameSize: 960, ShortBlocks: 8, LM: 3, EffBands: 21, MDCTSize: 960},
}

func lmForFrameSize(frameSize int) (int, bool) {
	for lm, m := range modesByLM {
		if m.FrameSize == frameSize {
			return lm, true
		}
	}
	return 0, false
}

// GetModeConfig returns the mode table entry for frameSize, falling back to
// the 20ms (LM=3) entry for an unrecognized size.
func GetModeConfig(frameSize int) ModeConfig {
	if lm, ok := lmForFrameSize(frameSize); ok {
		return modesByLM[lm]
	}
	return modesByLM[3]
}

func ValidFrameSize(frameSize int) bool {
	_, ok := lmForFrameSize(frameSize)
	return ok
}

// FrameSizeFromDuration maps a duration in milliseconds (2.5, 5, 10, 20) to
// its frame size in samples at 48kHz.
func FrameSizeFromDuration(durationMs float64) (int, error) {
	for _, m := range modesByLM {
		if DurationFromFrameSize(m.FrameSize) == durationMs {
			return m.FrameSize, nil
		}
	}
	return 0, fmt.Errorf("celt: %gms is not a valid CELT frame duration", durationMs)
}

func DurationFromFrameSize(frameSize int) float64 {
	return float64(frameSize) / 48.0
}

func LMToFrameSize(lm int) int {
	if lm < 0 || lm > 3 {
		lm = 3
	}
	return modesByLM[lm].FrameSize
}

func FrameSizeToLM(frameSize int) int {
	return GetModeConfig(frameSize).LM
}

// CELTBandwidth is the signaled audio bandwidth, which caps how many bands
// a frame codes regardless of its duration.
type CELTBandwidth int

const (
	CELTNarrowband CELTBandwidth = iota
	CELTMediumband
	CELTWideband
	CELTSuperwideband
	CELTFullband
)

var bandwidthNames = [...]string{"narrowband", "mediumband", "wideband", "super-wideband", "fullband"}
var bandwidthCeilingHz = [...]int{4000, 6000, 8000, 12000, 20000}
var bandwidthMaxBands = [...]int{13, 15, 17, 19, 21}

func (bw CELTBandwidth) String() string {
	if bw < CELTNarrowband || bw > CELTFullband {
		return "unknown"
	}
	return bandwidthNames[bw]
}

func (bw CELTBandwidth) MaxFrequency() int {
	if bw < CELTNarrowband || bw > CELTFullband {
		return 20000
	}
	return bandwidthCeilingHz[bw]
}

// EffectiveBands is the ceiling on coded bands this bandwidth permits; the
// actual per-frame count may be lower once frame-size limits are applied
// (see EffectiveBandsForFrameSize).
func (bw CELTBandwidth) EffectiveBands() int {
	if bw < CELTNarrowband || bw > CELTFullband {
		return MaxBands
	}
	return bandwidthMaxBands[bw]
}

func EffectiveBandsForFrameSize(bw CELTBandwidth, frameSize int) int {
	byBandwidth := bw.EffectiveBands()
	byFrame := GetModeConfig(frameSize).EffBands
	if byBandwidth < byFrame {
		return byBandwidth
	}
	return byFrame
}

// BandwidthFromOpusConfig maps a TOC bandwidth field (0=NB .. 4=FB) to the
// corresponding CELTBandwidth.
func BandwidthFromOpusConfig(opusBandwidth int) CELTBandwidth {
	if opusBandwidth < int(CELTNarrowband) || opusBandwidth > int(CELTFullband) {
		return CELTFullband
	}
	return CELTBandwidth(opusBandwidth)
}
