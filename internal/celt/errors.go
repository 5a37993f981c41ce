package celt

import "errors"

// ErrInvalidFrameSize indicates a CELT frame size outside the set valid
// at 48kHz (120, 240, 480, 960 samples).
var ErrInvalidFrameSize = errors.New("celt: invalid frame size")
