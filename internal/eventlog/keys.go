package eventlog

import (
	"bytes"
	"encoding/binary"

	"github.com/google/uuid"
	"github.com/rzbill/medtrail/internal/storeerr"
	"github.com/rzbill/medtrail/pkg/id"
)

// Keyspace helpers for Pebble keys.
//
// Layout (byte-wise, lexicographically sortable):
// - ev/{root_16}/{ts_desc_be8}{event_id_16}
//
// ts_desc is the event time in Unix ms with the sign bit flipped (so signed
// order equals unsigned order) and then bitwise inverted, which makes the
// newest event sort first. event_id is the raw 16-byte id, ascending.
// Everything for one root shares the ev/{root_16}/ prefix.

var (
	sep       = byte('/')
	evPrefix  = []byte("ev/")
	prefixLen = len(evPrefix) + 16 + 1
)

const (
	clusteringLen = 8 + 16
	eventKeyLen   = 3 + 16 + 1 + clusteringLen
)

func appendBE8(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

// encodeTsDesc maps a signed millisecond timestamp onto a big-endian
// uint64 whose byte order is descending in time.
func encodeTsDesc(ms int64) uint64 { return ^(uint64(ms) ^ (1 << 63)) }

func decodeTsDesc(v uint64) int64 { return int64(^v ^ (1 << 63)) }

// KeyPartitionPrefix returns ev/{root}/, the prefix shared by every event of root.
func KeyPartitionPrefix(root uuid.UUID) []byte {
	k := make([]byte, 0, eventKeyLen)
	k = append(k, evPrefix...)
	k = append(k, root[:]...)
	k = append(k, sep)
	return k
}

// KeyPartitionEnd returns the exclusive upper bound of root's partition.
func KeyPartitionEnd(root uuid.UUID) []byte {
	k := KeyPartitionPrefix(root)
	k[len(k)-1] = sep + 1
	return k
}

// KeyEvent builds the full event key from a partition and clustering key.
func KeyEvent(root uuid.UUID, ck ClusteringKey) []byte {
	k := KeyPartitionPrefix(root)
	return appendClustering(k, ck)
}

func appendClustering(dst []byte, ck ClusteringKey) []byte {
	dst = appendBE8(dst, encodeTsDesc(ck.Millis))
	return append(dst, ck.EventID[:]...)
}

// keyTimeFloor is the smallest key of root with time <= ms, i.e. the first
// key (in scan order) whose timestamp is at most ms.
func keyTimeFloor(root uuid.UUID, ms int64) []byte {
	k := KeyPartitionPrefix(root)
	k = appendBE8(k, encodeTsDesc(ms))
	return append(k, make([]byte, 16)...)
}

// keyTimeCeilExclusive is the exclusive upper key bound covering every event
// of root with time >= ms.
func keyTimeCeilExclusive(root uuid.UUID, ms int64) []byte {
	k := KeyPartitionPrefix(root)
	k = appendBE8(k, encodeTsDesc(ms))
	k = append(k, bytes.Repeat([]byte{0xFF}, 16)...)
	return append(k, 0x00)
}

// DecodeEventKey splits an event key back into its partition and clustering parts.
func DecodeEventKey(k []byte) (uuid.UUID, ClusteringKey, error) {
	if len(k) != eventKeyLen || !bytes.HasPrefix(k, evPrefix) || k[prefixLen-1] != sep {
		return uuid.Nil, ClusteringKey{}, storeerr.InvalidKey("malformed event key (%d bytes)", len(k))
	}
	var root uuid.UUID
	copy(root[:], k[len(evPrefix):prefixLen-1])
	ck, err := decodeClustering(k[prefixLen:])
	return root, ck, err
}

func decodeClustering(b []byte) (ClusteringKey, error) {
	if len(b) != clusteringLen {
		return ClusteringKey{}, storeerr.InvalidKey("clustering key must be %d bytes, got %d", clusteringLen, len(b))
	}
	var eid id.ID
	copy(eid[:], b[8:])
	return ClusteringKey{Millis: decodeTsDesc(binary.BigEndian.Uint64(b[:8])), EventID: eid}, nil
}
