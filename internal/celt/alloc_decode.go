package celt

import "github.com/oggopus/celtdec/internal/rangecoding"

// AllocationDecode is the bitstream-consuming half of bit allocation.
// Unlike ComputeAllocation (an offline estimate), this reads the
// skip-backward, intensity, and dual-stereo decisions directly off the
// range coder, in the exact order the encoder wrote them, then derives
// the final per-band pulse and fine-energy budgets from what remains.
//
// Reference: RFC 6716 Section 4.3.3, libopus celt/rate.c compute_allocation()
type AllocationDecode struct {
	Pulses       []int // per-band bit allocation in Q3 (1/8 bit) units
	FineQuant    []int // per-band fine energy bits
	FinePriority []int // 1 if a band's last fine bit should be spent first
	CodedBands   int   // bands at or above this index were skipped
	Balance      int   // leftover bits carried into quantAllBandsDecode
	Intensity    int   // first band using intensity stereo (end if none)
	DualStereo   bool
}

// DecodeAllocation reads the skip flags, intensity band, and dual-stereo
// flag for the current frame and computes the resulting band allocation.
func DecodeAllocation(rd *rangecoding.Decoder, start, end, lm int, channels int, totalBitsQ3, trim int, dynalloc []int) AllocationDecode {
	nbBands := end
	caps := ComputePulseCaps(nbBands, lm)

	avgBitsPerBand := 0
	if end > start {
		avgBitsPerBand = (totalBitsQ3 >> bitRes) / (end - start)
	}
	quality := avgBitsPerBand
	base := interpolateAlloc(quality, nbBands)
	applyTrim(base, trim, nbBands, lm)
	if dynalloc != nil {
		applyDynalloc(base, dynalloc, nbBands)
	}
	applyCaps(base, caps, nbBands)

	total := totalBitsQ3
	codedBands := end

	// Skip-backward: starting from the top band, the encoder signals
	// (with a single equiprobable bit) whether it gave up on
	// coding anything from that band upward because the budget ran dry.
	for codedBands > start {
		band := codedBands - 1
		bandBits := base[band] * 8
		if total >= bandBits {
			break
		}
		if rd.DecodeBit(1) == 0 {
			break
		}
		codedBands--
	}

	intensity := end
	if channels == 2 && codedBands > start {
		intensity = start + int(rd.DecodeUniform(uint32(codedBands-start+1)))
	}

	dualStereo := false
	if channels == 2 && intensity <= codedBands {
		dualStereo = rd.DecodeBit(1) == 1
	}

	// Distribute the remaining budget across the surviving bands,
	// proportional to the trimmed/dynalloc'd base weights.
	sum := 0
	for band := start; band < codedBands; band++ {
		sum += base[band]
	}
	scale := 1.0
	if sum > 0 {
		scale = float64(total/8) / float64(sum)
	}

	pulses := make([]int, nbBands)
	fineQuant := make([]int, nbBands)
	finePriority := make([]int, nbBands)
	spent := 0
	for band := start; band < codedBands; band++ {
		bits := int(float64(base[band]) * scale * 8)
		if bits > caps[band]*8 {
			bits = caps[band] * 8
		}
		if bits < 0 {
			bits = 0
		}
		fine := (bits / 8) / 24
		if fine > 8 {
			fine = 8
		}
		if fine < 0 {
			fine = 0
		}
		fineQuant[band] = fine
		fineBitsUsed := fine * 8
		remaining := bits - fineBitsUsed
		if remaining < 0 {
			remaining = 0
		}
		pulses[band] = remaining
		if fine > 0 {
			finePriority[band] = 1
		}
		spent += bits
	}

	balance := total - spent

	return AllocationDecode{
		Pulses:       pulses,
		FineQuant:    fineQuant,
		FinePriority: finePriority,
		CodedBands:   codedBands,
		Balance:      balance,
		Intensity:    intensity,
		DualStereo:   dualStereo,
	}
}
