package eventlog

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rzbill/medtrail/internal/storeerr"
	"github.com/rzbill/medtrail/pkg/id"
)

// StoredEvent is the persisted form of a medical event. It carries no
// derived attributes.
type StoredEvent struct {
	RootID      uuid.UUID
	Timestamp   time.Time
	EventID     id.ID
	EventType   string
	Description string
	Codes       []string
	CreatedBy   string
}

// ClusteringKey orders events inside a partition: Millis descending, then
// EventID ascending.
type ClusteringKey struct {
	Millis  int64
	EventID id.ID
}

// Time returns the clustering timestamp in UTC.
func (c ClusteringKey) Time() time.Time { return time.UnixMilli(c.Millis).UTC() }

// PartitionKeyOf returns the partition key of ev (its root id).
func PartitionKeyOf(ev StoredEvent) uuid.UUID { return ev.RootID }

// ClusteringKeyOf returns (timestamp, event id) for ev at millisecond precision.
func ClusteringKeyOf(ev StoredEvent) ClusteringKey {
	return ClusteringKey{Millis: ev.Timestamp.UnixMilli(), EventID: ev.EventID}
}

// Compare orders clustering keys newest-first with the event id as an
// ascending tiebreaker. It agrees with bytes.Compare on encoded keys.
func Compare(a, b ClusteringKey) int {
	switch {
	case a.Millis > b.Millis:
		return -1
	case a.Millis < b.Millis:
		return 1
	}
	return a.EventID.Compare(b.EventID)
}

// validate checks the partition and clustering components.
func validate(ev StoredEvent) error {
	if ev.RootID == uuid.Nil {
		return storeerr.InvalidKey("root id is required")
	}
	if ev.EventID.IsZero() {
		return storeerr.InvalidKey("event id is required")
	}
	if ev.Timestamp.IsZero() {
		return storeerr.InvalidKey("timestamp is required")
	}
	return nil
}

const recordVersion = 1

// eventRow is the JSON payload stored next to the key. Key components are
// repeated so raw readers can decode a value without its key.
type eventRow struct {
	RootID      string   `json:"root_id"`
	TsMs        int64    `json:"ts_ms"`
	EventID     id.ID    `json:"event_id"`
	EventType   string   `json:"event_type"`
	Description string   `json:"description,omitempty"`
	Codes       []string `json:"codes,omitempty"`
	CreatedBy   string   `json:"created_by,omitempty"`
}

func encodeEvent(ev StoredEvent) ([]byte, error) {
	row := eventRow{
		RootID:      ev.RootID.String(),
		TsMs:        ev.Timestamp.UnixMilli(),
		EventID:     ev.EventID,
		EventType:   ev.EventType,
		Description: ev.Description,
		Codes:       ev.Codes,
		CreatedBy:   ev.CreatedBy,
	}
	payload, err := json.Marshal(row)
	if err != nil {
		return nil, err
	}
	return frameRecord([]byte{recordVersion}, payload), nil
}

// decodeEvent rebuilds an event from its key and stored value. Partition and
// clustering components come from the key.
func decodeEvent(key, value []byte) (StoredEvent, error) {
	root, ck, err := DecodeEventKey(key)
	if err != nil {
		return StoredEvent{}, err
	}
	header, payload, err := unframeRecord(value)
	if err != nil {
		return StoredEvent{}, storeerr.Unavailable("decode event", err)
	}
	if len(header) != 1 || header[0] != recordVersion {
		return StoredEvent{}, storeerr.Unavailable("decode event", fmt.Errorf("unsupported record header %x", header))
	}
	var row eventRow
	if err := json.Unmarshal(payload, &row); err != nil {
		return StoredEvent{}, storeerr.Unavailable("decode event", err)
	}
	codes := row.Codes
	if codes == nil {
		codes = []string{}
	}
	return StoredEvent{
		RootID:      root,
		Timestamp:   ck.Time(),
		EventID:     ck.EventID,
		EventType:   row.EventType,
		Description: row.Description,
		Codes:       codes,
		CreatedBy:   row.CreatedBy,
	}, nil
}
