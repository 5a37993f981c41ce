package ogg

import (
	"encoding/binary"
	"strings"
)

// RFC 7845 constants for the OpusHead/OpusTags identification headers.
const (
	DefaultPreSkip = 312 // standard encoder lookahead at 48kHz

	headMagic    = "OpusHead"
	tagsMagic    = "OpusTags"
	headMinBytes = 19 // fixed portion for mapping family 0
)

// Channel mapping families this decoder recognizes. Only family 0 (implicit
// mono/stereo) is in scope; families 1/2/3/255 describe surround and
// ambisonics layouts that a CELT-only stereo decoder never produces, so
// ParseOpusHead rejects them rather than carrying multistream plumbing.
const (
	MappingFamilyRTP = 0
)

// OpusHead is the identification header carried in the stream's first page.
type OpusHead struct {
	Version       uint8
	Channels      uint8
	PreSkip       uint16
	SampleRate    uint32 // original input rate; informational, decode is always 48kHz
	OutputGain    int16  // Q7.8 dB
	MappingFamily uint8
	StreamCount   uint8
	CoupledCount  uint8
}

// Encode serializes a mapping-family-0 OpusHead (the only family this
// decoder produces defaults for).
func (h *OpusHead) Encode() []byte {
	buf := make([]byte, headMinBytes)
	copy(buf[0:8], headMagic)
	buf[8] = h.Version
	buf[9] = h.Channels
	binary.LittleEndian.PutUint16(buf[10:12], h.PreSkip)
	binary.LittleEndian.PutUint32(buf[12:16], h.SampleRate)
	binary.LittleEndian.PutUint16(buf[16:18], uint16(h.OutputGain))
	buf[18] = h.MappingFamily
	return buf
}

// ParseOpusHead decodes the identification header. Mapping families other
// than 0 (mono/stereo, implicit order) are rejected with
// ErrExtraChannelsUnsupported-equivalent ErrInvalidHeader since this module
// never constructs a channel map for them.
func ParseOpusHead(data []byte) (*OpusHead, error) {
	if len(data) < headMinBytes || string(data[0:8]) != headMagic {
		return nil, ErrInvalidHeader
	}

	h := &OpusHead{
		Version:       data[8],
		Channels:      data[9],
		PreSkip:       binary.LittleEndian.Uint16(data[10:12]),
		SampleRate:    binary.LittleEndian.Uint32(data[12:16]),
		OutputGain:    int16(binary.LittleEndian.Uint16(data[16:18])),
		MappingFamily: data[18],
	}

	if h.Version != 1 {
		return nil, ErrInvalidHeader
	}
	if h.Channels == 0 || h.Channels > 2 {
		return nil, ErrInvalidHeader
	}
	if h.MappingFamily != MappingFamilyRTP {
		return nil, ErrInvalidHeader
	}

	h.StreamCount = 1
	h.CoupledCount = 0
	if h.Channels == 2 {
		h.CoupledCount = 1
	}
	return h, nil
}

// OpusTags is the comment header carried in the stream's second page.
type OpusTags struct {
	Vendor   string
	Comments map[string]string
}

func (t *OpusTags) Encode() []byte {
	total := 8 + 4 + len(t.Vendor) + 4
	for k, v := range t.Comments {
		total += 4 + len(k) + 1 + len(v)
	}

	buf := make([]byte, total)
	pos := copy(buf, tagsMagic)

	binary.LittleEndian.PutUint32(buf[pos:], uint32(len(t.Vendor)))
	pos += 4
	pos += copy(buf[pos:], t.Vendor)

	binary.LittleEndian.PutUint32(buf[pos:], uint32(len(t.Comments)))
	pos += 4

	for k, v := range t.Comments {
		entry := k + "=" + v
		binary.LittleEndian.PutUint32(buf[pos:], uint32(len(entry)))
		pos += 4
		pos += copy(buf[pos:], entry)
	}
	return buf
}

func ParseOpusTags(data []byte) (*OpusTags, error) {
	if len(data) < 16 || string(data[0:8]) != tagsMagic {
		return nil, ErrInvalidHeader
	}

	pos := 8
	readU32 := func() (uint32, bool) {
		if pos+4 > len(data) {
			return 0, false
		}
		v := binary.LittleEndian.Uint32(data[pos : pos+4])
		pos += 4
		return v, true
	}
	readString := func(n int) (string, bool) {
		if pos+n > len(data) {
			return "", false
		}
		s := string(data[pos : pos+n])
		pos += n
		return s, true
	}

	vendorLen, ok := readU32()
	if !ok {
		return nil, ErrInvalidHeader
	}
	vendor, ok := readString(int(vendorLen))
	if !ok {
		return nil, ErrInvalidHeader
	}

	count, ok := readU32()
	if !ok {
		return nil, ErrInvalidHeader
	}

	t := &OpusTags{Vendor: vendor, Comments: make(map[string]string)}
	for i := uint32(0); i < count; i++ {
		entryLen, ok := readU32()
		if !ok {
			return nil, ErrInvalidHeader
		}
		entry, ok := readString(int(entryLen))
		if !ok {
			return nil, ErrInvalidHeader
		}
		if eq := strings.IndexByte(entry, '='); eq >= 0 {
			t.Comments[entry[:eq]] = entry[eq+1:]
		}
	}
	return t, nil
}

// DefaultOpusHead builds a mono/stereo OpusHead with standard framing
// defaults; mostly useful for tests that round-trip a synthetic stream.
func DefaultOpusHead(sampleRate uint32, channels uint8) *OpusHead {
	h := &OpusHead{
		Version:       1,
		Channels:      channels,
		PreSkip:       DefaultPreSkip,
		SampleRate:    sampleRate,
		MappingFamily: MappingFamilyRTP,
		StreamCount:   1,
	}
	if channels == 2 {
		h.CoupledCount = 1
	}
	return h
}

func DefaultOpusTags() *OpusTags {
	return &OpusTags{Vendor: "celtdec", Comments: make(map[string]string)}
}
