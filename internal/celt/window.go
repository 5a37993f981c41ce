package celt

import "math"

// CELT's overlap-add uses the Vorbis window rather than a raw
// raised-cosine: it is power-complementary (w[i]^2 + w[n-1-i]^2 == 1), which
// is what makes summing two windowed, time-shifted IMDCT outputs reconstruct
// the original signal exactly in the overlap region.
//
// Reference: RFC 6716 section 4.3.5.

// vorbisWindowSample evaluates w(i) = sin(pi/2 * sin^2(pi*(i+0.5)/n)) at a
// single sample position. n is the full (unfolded) window length; i ranges
// over [0, n).
func vorbisWindowSample(i, n int) float64 {
	if n <= 0 {
		return 0
	}
	phase := math.Pi * (float64(i) + 0.5) / float64(n)
	s := math.Sin(phase)
	return math.Sin(math.Pi / 2 * s * s)
}

// VorbisWindow is the exported form of vorbisWindowSample, kept for tests
// that check specific sample values against the RFC definition directly.
func VorbisWindow(i, n int) float64 { return vorbisWindowSample(i, n) }

// precomputedWindows caches the half-window (length == overlap) for every
// overlap size this codec actually uses, so the hot synthesis path never
// recomputes a sine per sample.
var precomputedWindows = map[int][]float64{}

func init() {
	for _, overlap := range []int{Overlap, 240, 480, 960} {
		precomputedWindows[overlap] = buildHalfWindow(overlap)
	}
}

func buildHalfWindow(overlap int) []float64 {
	half := make([]float64, overlap)
	for i := range half {
		half[i] = vorbisWindowSample(i, 2*overlap)
	}
	return half
}

// GetWindowBuffer returns the rising half of the Vorbis window for the
// given overlap length. Sizes not precomputed at package init are computed
// on each call and are not cached.
func GetWindowBuffer(overlap int) []float64 {
	if w, ok := precomputedWindows[overlap]; ok {
		return w
	}
	return buildHalfWindow(overlap)
}

// ApplyWindow cross-fades the edges of an IMDCT output buffer in place: the
// first overlap samples ramp up by the window and the last overlap samples
// ramp down by its mirror image. samples in between are untouched.
func ApplyWindow(samples []float64, overlap int) {
	n := len(samples)
	if n == 0 || overlap <= 0 {
		return
	}
	half := GetWindowBuffer(overlap)

	rise := overlap
	if rise > n {
		rise = n
	}
	for i := 0; i < rise; i++ {
		samples[i] *= half[i]
	}

	fall := overlap
	if fall > n {
		fall = n
	}
	base := n - overlap
	for i := 0; i < fall; i++ {
		idx := base + i
		if idx >= 0 {
			samples[idx] *= half[overlap-1-i]
		}
	}
}
