package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// communityBoardRe matches the 311 community board column, e.g. "12 MANHATTAN".
var communityBoardRe = regexp.MustCompile(`^0*(\d{1,2})\s+(.+)$`)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"01/02/2006 03:04:05 PM",
	"2006-01-02",
}

var errNoTimestamp = errors.New("no usable timestamp")

// ParseRawEvent deserializes a RawEvent's value into a normalized Event.
// It expects the flat JSON record produced by the collector service.
func ParseRawEvent(raw RawEvent) (Event, error) {
	var rec RawRecord
	if err := json.Unmarshal(raw.Value, &rec); err != nil {
		return Event{}, fmt.Errorf("parse raw event: %w", err)
	}
	return FromRecord(rec, raw.Timestamp)
}

// FromRecord normalizes a RawRecord. fallback is used when created_date is
// missing or unparsable.
func FromRecord(rec RawRecord, fallback time.Time) (Event, error) {
	ts, err := parseTimestamp(rec.CreatedDate, fallback)
	if err != nil {
		return Event{}, fmt.Errorf("parse raw event %q: %w", rec.UniqueKey, err)
	}

	kind := parseKind(rec.RecordType)
	region := NormalizeRegion(rec.Borough)

	event := Event{
		Kind:      kind,
		Timestamp: ts,
		Region:    region,
		ZoneID:    deriveZone(rec.ZoneID, rec.CommunityBoard, region),
		Location:  parseGeo(rec.Latitude, rec.Longitude),
		Address:   strings.TrimSpace(rec.IncidentAddress),
		Priority:  NormalizePriority(rec.Priority),
		Status:    NormalizeStatus(kind, rec.Status),
	}

	if kind == KindCollection {
		event.Category = NormalizeWasteType(rec.WasteType)
		if t, ok := parseFloat(rec.Tonnage); ok && t >= 0 {
			event.Tonnage = &t
		}
	} else {
		event.Category = NormalizeCategory(rec.ComplaintType)
	}

	if event.Location != nil {
		event.GeoSource = "original"
	}

	event.ID = strings.TrimSpace(rec.UniqueKey)
	if event.ID == "" {
		event.ID = generateID(kind, rec.CreatedDate, event.Category, region, rec.Latitude, rec.Longitude, event.ZoneID)
	}
	return event, nil
}

func parseKind(s string) Kind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "collection", "collections", "pickup":
		return KindCollection
	default:
		return KindServiceRequest
	}
}

func parseTimestamp(s string, fallback time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s != "" {
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), nil
			}
		}
	}
	if !fallback.IsZero() {
		return fallback.UTC(), nil
	}
	if s == "" {
		return time.Time{}, errNoTimestamp
	}
	return time.Time{}, fmt.Errorf("%w: %q", errNoTimestamp, s)
}

func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// parseGeo returns nil unless both coordinates parse, lie in range, and are
// not the (0,0) placeholder.
func parseGeo(latStr, lngStr string) *Geo {
	lat, okLat := parseFloat(latStr)
	lng, okLng := parseFloat(lngStr)
	if !okLat || !okLng {
		return nil
	}
	if lat == 0 && lng == 0 {
		return nil
	}
	if ValidateCoordinate(lat, lng) != nil {
		return nil
	}
	return &Geo{Lat: lat, Lng: lng}
}

// deriveZone prefers an explicit zone id, then the community board column.
func deriveZone(zoneID, communityBoard string, region Region) string {
	if z := strings.TrimSpace(zoneID); z != "" {
		return strings.ToUpper(z)
	}
	m := communityBoardRe.FindStringSubmatch(strings.TrimSpace(communityBoard))
	if m == nil {
		return ""
	}
	boardRegion := NormalizeRegion(m[2])
	if !boardRegion.IsSpecified() {
		boardRegion = region
	}
	code, ok := regionCodes[boardRegion]
	if !ok {
		return ""
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n == 0 {
		return ""
	}
	return fmt.Sprintf("%s-%02d", code, n)
}

// generateID produces a deterministic ID from the record's key fields so that
// reprocessing the same raw record produces the same ID.
func generateID(kind Kind, created, category string, region Region, lat, lng, zone string) string {
	input := fmt.Sprintf("%s|%s|%s|%s|%s|%s|%s", kind, created, category, region,
		strings.TrimSpace(lat), strings.TrimSpace(lng), zone)
	hash := sha256.Sum256([]byte(input))
	return string(kind) + "-" + hex.EncodeToString(hash[:8])
}
