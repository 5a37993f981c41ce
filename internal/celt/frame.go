package celt

import "github.com/oggopus/celtdec/internal/rangecoding"

// DecodeFrame decodes one CELT frame from a raw Opus packet payload
// (the TOC byte already stripped) and returns interleaved float64 PCM
// samples scaled to [-1, 1]. This is the entry point that ties together
// every decoding stage: range coder setup, side-information parsing,
// energy envelope decoding, PVQ shape decoding, denormalization,
// synthesis, the comb postfilter, and de-emphasis.
//
// Reference: RFC 6716 Section 4.3, libopus celt/celt_decoder.c celt_decode_with_ec()
func (d *Decoder) DecodeFrame(data []byte, frameSize int) ([]float64, error) {
	if !ValidFrameSize(frameSize) {
		return nil, ErrInvalidFrameSize
	}
	if len(data) == 0 {
		return d.decodePLCFrame(frameSize), nil
	}

	d.decodeFrameIndex++

	rd := &rangecoding.Decoder{}
	rd.Init(data)
	d.SetRangeDecoder(rd)

	mode := GetModeConfig(frameSize)
	lm := mode.LM
	end := EffectiveBandsForFrameSize(d.bandwidth, frameSize)
	if end > mode.EffBands {
		end = mode.EffBands
	}
	if end < 1 {
		end = 1
	}
	start := d.start

	prev1LogE := append([]float64(nil), d.prevLogE...)
	prev2LogE := append([]float64(nil), d.prevLogE2...)

	totalBits := len(data) * 8
	tell := rd.Tell()
	silence := false
	if tell >= totalBits {
		silence = true
	} else if tell == 1 {
		silence = rd.DecodeBit(15) == 1
	}
	if silence {
		samples := make([]float64, frameSize*d.channels)
		for i := range d.overlapBuffer {
			d.overlapBuffer[i] = 0
		}
		silenceE := make([]float64, MaxBands*d.channels)
		for i := range silenceE {
			silenceE[i] = -28.0
		}
		d.updateLogE(silenceE, MaxBands, false)
		copy(d.prevEnergy, silenceE)
		d.rng = rd.Range()
		return samples, nil
	}

	postfilterGain := 0.0
	postfilterPeriod := 0
	postfilterTapset := 0
	if start == 0 && tell+16 <= totalBits {
		if rd.DecodeBit(1) == 1 {
			octave := int(rd.DecodeUniform(6))
			postfilterPeriod = (16 << uint(octave)) + int(rd.DecodeRawBits(uint(4+octave))) - 1
			qg := int(rd.DecodeRawBits(3))
			if rd.Tell()+2 <= totalBits {
				postfilterTapset = rd.DecodeICDF(tapsetICDF, 2)
			}
			postfilterGain = 0.09375 * float64(qg+1)
		}
		tell = rd.Tell()
	}

	transient := false
	if lm > 0 && tell+3 <= totalBits {
		transient = rd.DecodeBit(3) == 1
		tell = rd.Tell()
	}
	intra := false
	if tell+3 <= totalBits {
		intra = rd.DecodeBit(3) == 1
	}

	shortBlocks := 1
	if transient {
		shortBlocks = mode.ShortBlocks
	}

	energies := d.DecodeCoarseEnergy(end, intra, lm)

	tfRes := make([]int, end)
	tfDecode(start, end, transient, tfRes, lm, rd)

	spread := spreadNormal
	tell = rd.Tell()
	if tell+4 <= totalBits {
		spread = rd.DecodeICDF(spreadICDF, 5)
	}

	totalBitsQ3 := totalBits << bitRes
	dynalloc := make([]int, end)
	caps := ComputePulseCaps(end, lm)
	dynallocLogp := 6
	tellFrac := rd.TellFrac()
	for i := start; i < end; i++ {
		width := d.channels * (EBands[i+1] - EBands[i]) << uint(lm)
		quanta := minInt(width<<bitRes, maxInt(6<<bitRes, width))
		loopLogp := dynallocLogp
		boost := 0
		j := 0
		for ; tellFrac+(loopLogp<<bitRes) < totalBitsQ3 && boost < caps[i]<<bitRes; j++ {
			flag := rd.DecodeBit(uint(loopLogp))
			tellFrac = rd.TellFrac()
			if flag == 0 {
				break
			}
			boost += quanta
			totalBitsQ3 -= quanta
			loopLogp = 1
		}
		dynalloc[i] = boost
		if j > 0 {
			dynallocLogp = maxInt(2, dynallocLogp-1)
		}
	}

	allocTrim := 5
	if tellFrac+(6<<bitRes) <= totalBitsQ3 {
		allocTrim = rd.DecodeICDF(trimICDF, 7)
	}

	bitsQ3 := (totalBits << bitRes) - rd.TellFrac() - 1
	antiCollapseRsv := 0
	if transient && lm >= 2 && bitsQ3 >= (lm+2)<<bitRes {
		antiCollapseRsv = 1 << bitRes
	}
	bitsQ3 -= antiCollapseRsv

	alloc := DecodeAllocation(rd, start, end, lm, d.channels, bitsQ3, allocTrim-5, dynalloc)

	d.DecodeFineEnergy(energies, end, alloc.FineQuant)

	dualStereoInt := 0
	if alloc.DualStereo {
		dualStereoInt = 1
	}
	coeffsL, coeffsR, collapse := quantAllBandsDecode(rd, d.channels, frameSize, lm, start, end,
		alloc.Pulses, shortBlocks, spread, dualStereoInt, alloc.Intensity, tfRes,
		(totalBits<<bitRes)-antiCollapseRsv, alloc.Balance, alloc.CodedBands, &d.rng)

	antiCollapseOn := false
	if antiCollapseRsv > 0 {
		antiCollapseOn = rd.DecodeRawBits(1) == 1
	}

	remainderBits := make([]int, end)
	bitsLeft := totalBits - rd.Tell()
	for bitsLeft > 0 {
		progressed := false
		for priority := 0; priority <= 1 && bitsLeft > 0; priority++ {
			for band := start; band < end && bitsLeft > 0; band++ {
				if alloc.FinePriority[band] == priority {
					remainderBits[band]++
					bitsLeft--
					progressed = true
				}
			}
		}
		if !progressed {
			break
		}
	}
	d.DecodeEnergyRemainder(energies, end, remainderBits)

	if antiCollapseOn {
		antiCollapse(coeffsL, coeffsR, collapse, lm, d.channels, start, end, energies, prev1LogE, prev2LogE, alloc.Pulses, d.rng)
	}

	var samples []float64
	if d.channels == 2 {
		energiesL := energies[:end]
		energiesR := energies[end:]
		denormalizeCoeffs(coeffsL, energiesL, end, frameSize)
		denormalizeCoeffs(coeffsR, energiesR, end, frameSize)
		samples = d.SynthesizeStereo(coeffsL, coeffsR, transient, shortBlocks)
	} else {
		denormalizeCoeffs(coeffsL, energies, end, frameSize)
		samples = d.Synthesize(coeffsL, transient, shortBlocks)
	}

	d.SetPostfilter(postfilterPeriod, postfilterGain, postfilterTapset)
	d.applyPostfilter(samples, frameSize, lm)

	d.applyDeemphasisAndScale(samples, 1.0/32768.0)

	d.updateLogE(energies, end, transient)

	for c := 0; c < d.channels; c++ {
		base := c * MaxBands
		for band := 0; band < start; band++ {
			d.prevLogE[base+band] = -28.0
			d.prevLogE2[base+band] = -28.0
		}
		for band := end; band < MaxBands; band++ {
			d.prevLogE[base+band] = -28.0
			d.prevLogE2[base+band] = -28.0
		}
	}

	d.rng = rd.Range()

	return samples, nil
}

// decodePLCFrame synthesizes a lost-frame replacement by decaying the
// last known band energies and running the normal synthesis path with a
// noise-only spectrum, matching the spirit of libopus's PLC without its
// pitch-repetition heuristics (handled upstream by the Ogg/Opus layer's
// retransmission expectations).
func (d *Decoder) decodePLCFrame(frameSize int) []float64 {
	mode := GetModeConfig(frameSize)
	lm := mode.LM
	end := d.end

	energies := make([]float64, end*d.channels)
	for c := 0; c < d.channels; c++ {
		for band := 0; band < end; band++ {
			energies[c*end+band] = d.prevLogE[c*MaxBands+band] - 2.0
		}
	}

	coeffsL := make([]float64, frameSize)
	var coeffsR []float64
	if d.channels == 2 {
		coeffsR = make([]float64, frameSize)
	}
	for i := 0; i < frameSize; i++ {
		coeffsL[i] = plcNoise(&d.rng)
		if d.channels == 2 {
			coeffsR[i] = plcNoise(&d.rng)
		}
	}

	var samples []float64
	if d.channels == 2 {
		denormalizeCoeffs(coeffsL, energies[:end], end, frameSize)
		denormalizeCoeffs(coeffsR, energies[end:], end, frameSize)
		samples = d.SynthesizeStereo(coeffsL, coeffsR, false, 1)
	} else {
		denormalizeCoeffs(coeffsL, energies, end, frameSize)
		samples = d.Synthesize(coeffsL, false, 1)
	}

	d.SetPostfilter(d.postfilterPeriod, d.postfilterGain, d.postfilterTapset)
	d.applyPostfilter(samples, frameSize, lm)
	d.applyDeemphasisAndScale(samples, 1.0/32768.0)

	d.updateLogE(energies, end, false)
	return samples
}

// plcNoise draws a small pseudo-random coefficient used to fill the
// spectrum during concealment, using the decoder's own RNG so output
// stays deterministic given the RNG seed carried from the last good frame.
func plcNoise(rng *uint32) float64 {
	*rng = *rng*1664525 + 1013904223
	return (float64(*rng>>16&0xFFFF)/32768.0 - 1.0) * 0.1
}
