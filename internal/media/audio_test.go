package media

import (
	"encoding/binary"
	"testing"
)

// oggPage builds a minimal page header: "OggS" + version + type + granule.
func oggPage(granule uint64) []byte {
	page := make([]byte, 14)
	copy(page, "OggS")
	binary.LittleEndian.PutUint64(page[6:], granule)
	return page
}

func TestOggDuration(t *testing.T) {
	// 96000 samples at the fixed 48 kHz granule rate is two seconds.
	var stream []byte
	stream = append(stream, oggPage(0)...)
	stream = append(stream, oggPage(48000)...)
	stream = append(stream, oggPage(96000)...)

	if got := OggDuration(stream); got != 2.0 {
		t.Fatalf("unexpected duration:\nwant: %v\ngot:  %v", 2.0, got)
	}
}

func TestOggDurationSkipsUnfinishedPage(t *testing.T) {
	// A trailing page with granule -1 carries no finished packets; the
	// previous page holds the real position.
	var stream []byte
	stream = append(stream, oggPage(144000)...)
	stream = append(stream, oggPage(^uint64(0))...)

	if got := OggDuration(stream); got != 3.0 {
		t.Fatalf("unexpected duration:\nwant: %v\ngot:  %v", 3.0, got)
	}
}

func TestOggDurationMalformed(t *testing.T) {
	if got := OggDuration([]byte("not an ogg stream")); got != 0 {
		t.Fatalf("malformed stream returned %v", got)
	}
	// A bare marker with a truncated header is unknown, not a panic.
	if got := OggDuration([]byte("OggS\x00")); got != 0 {
		t.Fatalf("truncated page returned %v", got)
	}
	if got := OggDuration(nil); got != 0 {
		t.Fatalf("nil input returned %v", got)
	}
}
