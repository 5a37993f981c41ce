package ogg

import "io"

const readBufSize = 64 * 1024

// Reader demuxes Opus packets out of an Ogg bitstream. It parses the
// identification and comment headers eagerly in NewReader and then hands
// back one decodable packet per ReadPacket call, transparently reassembling
// packets that a page boundary split in two.
type Reader struct {
	src    io.Reader
	Header *OpusHead
	Tags   *OpusTags

	serial     uint32
	granule    uint64
	eos        bool

	buf    []byte
	start  int
	end    int

	carry []byte // bytes of a packet still awaiting its closing page

	queue        [][]byte // packets already split out of a page, not yet returned
	queueGranule uint64
}

// NewReader parses the BOS page (OpusHead) and the following comment
// page(s) (OpusTags, which may itself span pages) before returning.
func NewReader(src io.Reader) (*Reader, error) {
	r := &Reader{src: src, buf: make([]byte, readBufSize)}

	bos, err := r.nextPage()
	if err != nil {
		return nil, err
	}
	if !bos.IsBOS() {
		return nil, ErrInvalidPage
	}
	firstPackets := bos.Packets()
	if len(firstPackets) == 0 {
		return nil, ErrInvalidHeader
	}
	r.Header, err = ParseOpusHead(firstPackets[0])
	if err != nil {
		return nil, err
	}
	r.serial = bos.SerialNumber

	var tagBytes []byte
	for {
		page, err := r.nextPage()
		if err != nil {
			return nil, err
		}
		if page.SerialNumber != r.serial {
			return nil, ErrInvalidPage
		}
		if page.IsContinuation() && len(tagBytes) == 0 {
			return nil, ErrInvalidPage
		}
		tagBytes = append(tagBytes, page.Payload...)
		if lastLaceEndsPacket(page.Segments) {
			break
		}
	}
	r.Tags, err = ParseOpusTags(tagBytes)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func lastLaceEndsPacket(segments []byte) bool {
	return len(segments) > 0 && segments[len(segments)-1] < 255
}

// ReadPacket returns the next Opus packet and the granule position of the
// page it completed on. It returns io.EOF once the stream's EOS page has
// been consumed and no packets remain queued.
func (r *Reader) ReadPacket() ([]byte, uint64, error) {
	for {
		if len(r.queue) > 0 {
			pkt := r.queue[0]
			r.queue = r.queue[1:]
			return pkt, r.queueGranule, nil
		}
		if r.eos {
			return nil, 0, io.EOF
		}
		if err := r.advance(); err != nil {
			return nil, 0, err
		}
	}
}

// advance reads one more page and feeds whatever complete packets it
// yields into the queue (draining r.carry first if a packet was left
// hanging across the page boundary).
func (r *Reader) advance() error {
	page, err := r.nextPage()
	if err != nil {
		if err == io.EOF {
			r.eos = true
			return nil
		}
		return err
	}
	if page.SerialNumber != r.serial {
		return nil // foreign logical stream interleaved in the physical one; skip
	}
	if page.IsEOS() {
		r.eos = true
	}
	r.granule = page.GranulePos

	pieces := page.Packets()
	switch {
	case len(r.carry) > 0 && page.IsContinuation() && len(pieces) > 0:
		pieces[0] = append(r.carry, pieces[0]...)
		r.carry = nil
	case len(r.carry) > 0:
		r.carry = nil // continuation never arrived; drop the orphaned partial
	case page.IsContinuation() && len(pieces) > 0:
		pieces = pieces[1:] // joined mid-stream: discard the fragment we can't complete
	}

	if lastLaceEndsPacket(page.Segments) {
		r.enqueue(pieces, r.granule)
		return nil
	}
	// The final piece continues on a following page.
	if len(pieces) > 1 {
		r.enqueue(pieces[:len(pieces)-1], r.granule)
	}
	if n := len(pieces); n > 0 {
		r.carry = pieces[n-1]
	}
	return nil
}

func (r *Reader) enqueue(pkts [][]byte, granule uint64) {
	for _, p := range pkts {
		if len(p) == 0 {
			continue
		}
		r.queue = append(r.queue, p)
	}
	r.queueGranule = granule
}

// nextPage parses one page out of the internal buffer, pulling more bytes
// from src and growing the buffer as needed. It does not scan for resync —
// a caller decoding a raw stream from an arbitrary offset should locate the
// capture pattern itself before handing the reader a clean page boundary.
func (r *Reader) nextPage() (*Page, error) {
	for {
		if r.end > r.start {
			if page, n, err := ParsePage(r.buf[r.start:r.end]); err == nil {
				r.start += n
				return page, nil
			}
		}

		if r.start > 0 {
			copy(r.buf, r.buf[r.start:r.end])
			r.end -= r.start
			r.start = 0
		}
		if r.end >= len(r.buf) {
			grown := make([]byte, len(r.buf)*2)
			copy(grown, r.buf[:r.end])
			r.buf = grown
		}

		n, err := r.src.Read(r.buf[r.end:])
		r.end += n
		if err != nil {
			if err == io.EOF && r.end > r.start {
				if page, consumed, perr := ParsePage(r.buf[r.start:r.end]); perr == nil {
					r.start += consumed
					return page, nil
				}
			}
			return nil, err
		}
	}
}

func (r *Reader) PreSkip() uint16 {
	if r.Header == nil {
		return 0
	}
	return r.Header.PreSkip
}

func (r *Reader) Channels() uint8 {
	if r.Header == nil {
		return 0
	}
	return r.Header.Channels
}

func (r *Reader) SampleRate() uint32 {
	if r.Header == nil {
		return 0
	}
	return r.Header.SampleRate
}

func (r *Reader) GranulePos() uint64 { return r.granule }
func (r *Reader) EOF() bool          { return r.eos }
func (r *Reader) Serial() uint32     { return r.serial }
