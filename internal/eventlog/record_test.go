package eventlog

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rzbill/medtrail/internal/storeerr"
)

func TestEventValueLayout(t *testing.T) {
	root := uuid.New()
	ev := StoredEvent{
		RootID:      root,
		Timestamp:   time.UnixMilli(1_700_000_000_123).UTC(),
		EventID:     eid(7),
		EventType:   "CRITICAL_LAB",
		Description: "potassium 6.8",
		Codes:       []string{"E87.5", "E87.5"},
		CreatedBy:   "lab",
	}
	val, err := encodeEvent(ev)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	// uvarint(1) then the version byte
	if val[0] != 1 || val[1] != recordVersion {
		t.Fatalf("unexpected header bytes % x", val[:2])
	}
	header, payload, err := unframeRecord(val)
	if err != nil || len(header) != 1 {
		t.Fatalf("unframe: header=%x err=%v", header, err)
	}
	var row map[string]any
	if err := json.Unmarshal(payload, &row); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	for _, k := range []string{"root_id", "ts_ms", "event_id", "event_type", "description", "codes", "created_by"} {
		if _, ok := row[k]; !ok {
			t.Fatalf("payload missing %q: %s", k, payload)
		}
	}
	if row["root_id"] != root.String() || row["event_id"] != eid(7).String() {
		t.Fatalf("payload ids: %s", payload)
	}

	got, err := decodeEvent(KeyEvent(root, ClusteringKeyOf(ev)), val)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.Timestamp.Equal(ev.Timestamp) || got.EventID != ev.EventID || got.EventType != ev.EventType ||
		got.Description != ev.Description || len(got.Codes) != 2 || got.CreatedBy != ev.CreatedBy {
		t.Fatalf("decoded %+v, want %+v", got, ev)
	}
}

func TestEventValueNilCodesDecodeEmpty(t *testing.T) {
	ev := StoredEvent{RootID: testRoot, Timestamp: time.UnixMilli(5).UTC(), EventID: eid(1), EventType: "NOTE"}
	val, err := encodeEvent(ev)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := decodeEvent(KeyEvent(testRoot, ClusteringKeyOf(ev)), val)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Codes == nil || len(got.Codes) != 0 {
		t.Fatalf("want empty codes, got %#v", got.Codes)
	}
}

func TestEventValueRejectsDamage(t *testing.T) {
	ev := StoredEvent{RootID: testRoot, Timestamp: time.UnixMilli(5).UTC(), EventID: eid(1), EventType: "NOTE"}
	key := KeyEvent(testRoot, ClusteringKeyOf(ev))
	val, err := encodeEvent(ev)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	flipped := append([]byte(nil), val...)
	flipped[3] ^= 0x01
	truncated := val[:len(val)-5]
	futureVersion := frameRecord([]byte{recordVersion + 1}, []byte(`{"event_type":"NOTE"}`))
	notJSON := frameRecord([]byte{recordVersion}, []byte("not json"))

	cases := []struct {
		name  string
		value []byte
		cause error
	}{
		{"checksum", flipped, errCorruptRecord},
		{"truncated", truncated, nil},
		{"too short", []byte{1, 1}, errShortRecord},
		{"unknown version", futureVersion, nil},
		{"bad payload", notJSON, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := decodeEvent(key, tc.value)
			if !errors.Is(err, storeerr.ErrStorageUnavailable) {
				t.Fatalf("want ErrStorageUnavailable, got %v", err)
			}
			if tc.cause != nil && !errors.Is(err, tc.cause) {
				t.Fatalf("want cause %v, got %v", tc.cause, err)
			}
		})
	}
}
