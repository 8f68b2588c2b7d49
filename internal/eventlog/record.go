package eventlog

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
)

// Event values are framed as
//
//	uvarint(len(header)) | header | payload | crc32c(header|payload)
//
// where header is a single format version byte and payload is the JSON row.

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

var (
	errShortRecord   = errors.New("eventlog: record truncated")
	errCorruptRecord = errors.New("eventlog: record checksum mismatch")
)

func frameRecord(header, payload []byte) []byte {
	out := make([]byte, 0, binary.MaxVarintLen64+len(header)+len(payload)+4)
	out = binary.AppendUvarint(out, uint64(len(header)))
	out = append(out, header...)
	out = append(out, payload...)
	return binary.BigEndian.AppendUint32(out, checksum(header, payload))
}

func checksum(header, payload []byte) uint32 {
	return crc32.Update(crc32.Update(0, castagnoli, header), castagnoli, payload)
}

// unframeRecord verifies the checksum of b and returns its header and
// payload. Both alias b.
func unframeRecord(b []byte) (header, payload []byte, err error) {
	if len(b) < 1+4 {
		return nil, nil, errShortRecord
	}
	hlen, n := binary.Uvarint(b)
	rest := len(b) - n - 4
	if n <= 0 || rest < 0 || hlen > uint64(rest) {
		return nil, nil, errShortRecord
	}
	header = b[n : n+int(hlen)]
	payload = b[n+int(hlen) : len(b)-4]
	if checksum(header, payload) != binary.BigEndian.Uint32(b[len(b)-4:]) {
		return nil, nil, errCorruptRecord
	}
	return header, payload, nil
}
