package domain

import (
	"context"
	"time"
)

// Kind distinguishes service requests from collection records.
type Kind string

const (
	KindServiceRequest Kind = "service_request"
	KindCollection     Kind = "collection"
)

// Priority is the urgency assigned to a service request.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Status is the lifecycle state of a request or collection.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusClosed     Status = "closed"
	StatusCompleted  Status = "completed"
	StatusMissed     Status = "missed"
	StatusPartial    Status = "partial"
)

// CategoryOverflow is the complaint category used by overflow risk scoring.
const CategoryOverflow = "overflow"

// RawRecord is the flat JSON structure produced by the collector.
// Service requests and collection records share one shape; fields that do not
// apply to a record type are left empty.
type RawRecord struct {
	UniqueKey       string `json:"unique_key"`
	RecordType      string `json:"record_type"`
	CreatedDate     string `json:"created_date"`
	ComplaintType   string `json:"complaint_type"`
	WasteType       string `json:"waste_type"`
	Borough         string `json:"borough"`
	CommunityBoard  string `json:"community_board"`
	ZoneID          string `json:"zone_id"`
	Latitude        string `json:"latitude"`
	Longitude       string `json:"longitude"`
	IncidentAddress string `json:"incident_address"`
	Priority        string `json:"priority"`
	Status          string `json:"status"`
	Tonnage         string `json:"tonnage"` // collection records only
}

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// Geo represents a WGS-84 latitude/longitude coordinate pair.
type Geo struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Event is a normalized service request or collection record. Events are
// treated as immutable once parsed.
type Event struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
	Category  string    `json:"category"`
	Region    Region    `json:"region"`
	ZoneID    string    `json:"zone_id,omitempty"`
	Location  *Geo      `json:"location,omitempty"`
	Address   string    `json:"address,omitempty"`
	Priority  Priority  `json:"priority"`
	Status    Status    `json:"status"`
	Tonnage   *float64  `json:"tonnage,omitempty"`

	// Geocoding enrichment.
	GeoSource     string  `json:"geo_source,omitempty"` // "original", "forward", "reverse", "failed"
	GeoConfidence float64 `json:"geo_confidence,omitempty"`
}

// HasLocation reports whether the event carries coordinates.
func (e Event) HasLocation() bool {
	return e.Location != nil
}

// IsUrgent reports whether the event is flagged high-priority.
func (e Event) IsUrgent() bool {
	return e.Priority == PriorityHigh || e.Priority == PriorityUrgent
}

// TonnageOrZero returns the collected tonnage, or 0 when unknown.
func (e Event) TonnageOrZero() float64 {
	if e.Tonnage == nil {
		return 0
	}
	return *e.Tonnage
}
