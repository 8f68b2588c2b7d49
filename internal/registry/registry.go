package registry

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rzbill/medtrail/internal/storeerr"
)

// Root is a patient record. Identity is immutable; everything else is
// replaced wholesale on Put.
type Root struct {
	ID          uuid.UUID         `json:"id"`
	Name        string            `json:"name"`
	DateOfBirth string            `json:"dateOfBirth,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	UpdatedAtMs int64             `json:"updatedAtMs"`
}

// Registry stores root entities, one entry per id.
type Registry interface {
	// Put upserts r, assigning a fresh UUIDv4 when r.ID is unset, and
	// returns the stored value.
	Put(ctx context.Context, r Root) (Root, error)
	Get(ctx context.Context, id uuid.UUID) (Root, bool, error)
	// Exists reports presence without decoding attributes.
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	// Delete removes the root. Deleting an absent root is not an error.
	Delete(ctx context.Context, id uuid.UUID) error
	// List returns up to limit roots in id order; limit <= 0 means all.
	List(ctx context.Context, limit int) ([]Root, error)
	Close() error
}

const dobLayout = "2006-01-02"

// prepare validates r and fills in the id and update stamp.
func prepare(r Root, now time.Time) (Root, error) {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return Root{}, storeerr.InvalidArgument("name is required")
	}
	if r.DateOfBirth != "" {
		if _, err := time.Parse(dobLayout, r.DateOfBirth); err != nil {
			return Root{}, storeerr.InvalidArgument("dateOfBirth must be YYYY-MM-DD")
		}
	}
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Attributes == nil {
		r.Attributes = map[string]string{}
	}
	r.UpdatedAtMs = now.UnixMilli()
	return r, nil
}
