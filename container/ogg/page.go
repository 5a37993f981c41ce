package ogg

import "encoding/binary"

// Flags carried in a page's header_type_flag byte (RFC 3533 section 6).
const (
	PageFlagContinuation = 0x01 // payload continues a packet started on an earlier page
	PageFlagBOS          = 0x02 // first page of a logical bitstream
	PageFlagEOS          = 0x04 // last page of a logical bitstream
)

const (
	fixedHeaderLen = 27    // capture pattern through segment count, before the table
	capturePattern = "OggS"
)

// Page is one physical Ogg page: a fixed header, a lacing (segment) table,
// and the packet bytes the table describes.
type Page struct {
	Version      byte
	HeaderType   byte
	GranulePos   uint64
	SerialNumber uint32
	PageSequence uint32
	Segments     []byte
	Payload      []byte
}

func (p *Page) IsBOS() bool           { return p.HeaderType&PageFlagBOS != 0 }
func (p *Page) IsEOS() bool           { return p.HeaderType&PageFlagEOS != 0 }
func (p *Page) IsContinuation() bool  { return p.HeaderType&PageFlagContinuation != 0 }

// BuildSegmentTable lays out the lacing values for a single packet of length
// packetLen. Runs of 255 mark "keep going", and the table always ends in a
// value below 255 (a trailing zero when packetLen is itself a multiple of
// 255) so a reader can tell where the packet stops.
func BuildSegmentTable(packetLen int) []byte {
	full := packetLen / 255
	tail := packetLen % 255

	table := make([]byte, 0, full+1)
	for i := 0; i < full; i++ {
		table = append(table, 255)
	}
	table = append(table, byte(tail))
	return table
}

// ParseSegmentTable walks a lacing table and returns the length of every
// packet it fully terminates. A table ending in 255 describes a packet
// still in progress; that trailing run is not reported as a complete
// packet here — the caller must carry it into the next page.
func ParseSegmentTable(segments []byte) []int {
	var lens []int
	running := 0
	for _, lace := range segments {
		running += int(lace)
		if lace < 255 {
			lens = append(lens, running)
			running = 0
		}
	}
	return lens
}

func (p *Page) PacketLengths() []int { return ParseSegmentTable(p.Segments) }

// Packets slices the page payload according to its lacing table. A
// truncated payload yields a final, short packet rather than panicking.
func (p *Page) Packets() [][]byte {
	lens := p.PacketLengths()
	if len(lens) == 0 {
		return nil
	}
	out := make([][]byte, len(lens))
	pos := 0
	for i, n := range lens {
		end := pos + n
		if end > len(p.Payload) {
			out[i] = p.Payload[pos:]
			break
		}
		out[i] = p.Payload[pos:end]
		pos = end
	}
	return out
}

// Encode serializes the page, filling in the CRC32 over the fully assembled
// bytes (with the CRC field itself held at zero during the computation).
func (p *Page) Encode() []byte {
	segTableLen := fixedHeaderLen + len(p.Segments)
	buf := make([]byte, segTableLen+len(p.Payload))

	copy(buf[0:4], capturePattern)
	buf[4] = p.Version
	buf[5] = p.HeaderType
	binary.LittleEndian.PutUint64(buf[6:14], p.GranulePos)
	binary.LittleEndian.PutUint32(buf[14:18], p.SerialNumber)
	binary.LittleEndian.PutUint32(buf[18:22], p.PageSequence)
	buf[26] = byte(len(p.Segments))
	copy(buf[27:], p.Segments)
	copy(buf[segTableLen:], p.Payload)

	binary.LittleEndian.PutUint32(buf[22:26], oggCRC(buf))
	return buf
}

// ParsePage reads one page starting at data[0] and reports how many bytes
// it consumed. It does not scan forward for the capture pattern — callers
// that need resync must scan for the pattern themselves.
func ParsePage(data []byte) (*Page, int, error) {
	if len(data) < fixedHeaderLen || string(data[0:4]) != capturePattern {
		return nil, 0, ErrInvalidPage
	}

	p := &Page{
		Version:      data[4],
		HeaderType:   data[5],
		GranulePos:   binary.LittleEndian.Uint64(data[6:14]),
		SerialNumber: binary.LittleEndian.Uint32(data[14:18]),
		PageSequence: binary.LittleEndian.Uint32(data[18:22]),
	}
	wantCRC := binary.LittleEndian.Uint32(data[22:26])

	segCount := int(data[26])
	bodyStart := fixedHeaderLen + segCount
	if len(data) < bodyStart {
		return nil, 0, ErrInvalidPage
	}
	p.Segments = append([]byte(nil), data[fixedHeaderLen:bodyStart]...)

	payloadLen := 0
	for _, lace := range p.Segments {
		payloadLen += int(lace)
	}
	pageLen := bodyStart + payloadLen
	if len(data) < pageLen {
		return nil, 0, ErrInvalidPage
	}
	p.Payload = append([]byte(nil), data[bodyStart:pageLen]...)

	verify := append([]byte(nil), data[:pageLen]...)
	verify[22], verify[23], verify[24], verify[25] = 0, 0, 0, 0
	if oggCRC(verify) != wantCRC {
		return nil, 0, ErrBadCRC
	}

	return p, pageLen, nil
}
