package celt

// TestDecodeLaplace exposes decodeLaplace for testing.
func (d *Decoder) TestDecodeLaplace(fs, decay int) int {
	return d.decodeLaplace(fs, decay)
}
