package celt

import "math"

// denormalizeCoeffs scales each band's unit-norm PVQ shape by its decoded
// energy, turning the normalized spectrum quantAllBandsDecode produced
// into the amplitude-scaled MDCT coefficients the inverse transform needs.
// Reference: libopus celt/bands.c denormalise_bands()
func denormalizeCoeffs(coeffs []float64, energies []float64, end, frameSize int) {
	lm := FrameSizeToLM(frameSize)
	m := 1 << lm
	for band := 0; band < end; band++ {
		start := EBands[band] * m
		stop := EBands[band+1] * m
		if stop > len(coeffs) {
			stop = len(coeffs)
		}
		if start >= stop || band >= len(energies) {
			continue
		}
		gain := math.Exp2(energies[band] / DB6)
		for i := start; i < stop; i++ {
			coeffs[i] *= gain
		}
	}
}

// updateLogE rotates the persistent per-band log-energy history used by
// anti-collapse and coarse-energy prediction across frames. Mirrors
// libopus celt_decoder.c's handling of oldLogE/oldLogE2.
func (d *Decoder) updateLogE(energies []float64, nbBands int, transient bool) {
	for c := 0; c < d.channels; c++ {
		base := c * MaxBands
		for band := 0; band < nbBands; band++ {
			e := energies[c*nbBands+band]
			if !transient {
				d.prevLogE2[base+band] = d.prevLogE[base+band]
			}
			d.prevLogE[base+band] = e
		}
	}
}

// applyDeemphasisAndScale runs the single-pole de-emphasis filter used to
// invert the encoder's pre-emphasis, then scales to the [-1, 1] float
// range expected by callers.
// Reference: RFC 6716 Section 4.3.5, libopus celt/celt_decoder.c deemphasis().
func (d *Decoder) applyDeemphasisAndScale(samples []float64, scale float64) {
	if d.channels <= 0 || len(samples) == 0 {
		return
	}
	n := len(samples) / d.channels
	for ch := 0; ch < d.channels; ch++ {
		m := d.preemphState[ch]
		for i := 0; i < n; i++ {
			idx := i*d.channels + ch
			y := samples[idx] + PreemphCoef*m
			m = y
			samples[idx] = y * scale
		}
		d.preemphState[ch] = m
	}
}
