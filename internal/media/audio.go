package media

import (
	"bytes"
	"encoding/binary"
)

// opusSampleRate is fixed by the OPUS spec: granule positions always count
// 48 kHz samples regardless of the encoded rate.
const opusSampleRate = 48000

// OggDuration computes the duration of an OGG/OPUS stream in seconds from
// the granule position of the last page. Returns 0 when the stream is
// malformed; callers treat that as unknown duration, not an error.
func OggDuration(data []byte) float64 {
	idx := bytes.LastIndex(data, sigOGG)
	for idx >= 0 {
		// Page header: "OggS" + version(1) + type(1) + granule(8, LE).
		if idx+14 <= len(data) {
			granule := binary.LittleEndian.Uint64(data[idx+6 : idx+14])
			// -1 marks a page with no finished packets; walk back one page.
			if granule != ^uint64(0) {
				return float64(granule) / opusSampleRate
			}
		}
		if idx == 0 {
			break
		}
		idx = bytes.LastIndex(data[:idx], sigOGG)
	}
	return 0
}
