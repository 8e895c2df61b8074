package domain

import (
	"strings"
)

// Region is a canonical borough-equivalent administrative area.
type Region string

const (
	RegionManhattan    Region = "MANHATTAN"
	RegionBrooklyn     Region = "BROOKLYN"
	RegionQueens       Region = "QUEENS"
	RegionBronx        Region = "BRONX"
	RegionStatenIsland Region = "STATEN ISLAND"
	RegionUnspecified  Region = "UNSPECIFIED"
)

// regionAliases interns the spellings seen in 311 and DSNY exports.
var regionAliases = map[string]Region{
	"MANHATTAN":     RegionManhattan,
	"NEW YORK":      RegionManhattan,
	"MN":            RegionManhattan,
	"BROOKLYN":      RegionBrooklyn,
	"KINGS":         RegionBrooklyn,
	"BK":            RegionBrooklyn,
	"QUEENS":        RegionQueens,
	"QN":            RegionQueens,
	"BRONX":         RegionBronx,
	"THE BRONX":     RegionBronx,
	"BX":            RegionBronx,
	"STATEN ISLAND": RegionStatenIsland,
	"STATEN IS":     RegionStatenIsland,
	"RICHMOND":      RegionStatenIsland,
	"SI":            RegionStatenIsland,
	"":              RegionUnspecified,
	"UNSPECIFIED":   RegionUnspecified,
	"UNKNOWN":       RegionUnspecified,
}

// regionCodes are the two-letter prefixes used for derived zone IDs.
var regionCodes = map[Region]string{
	RegionManhattan:    "MN",
	RegionBrooklyn:     "BK",
	RegionQueens:       "QN",
	RegionBronx:        "BX",
	RegionStatenIsland: "SI",
}

// NormalizeRegion maps free-text borough names to a canonical Region.
// Unknown non-empty names are upper-cased and kept so other cities still group.
func NormalizeRegion(value string) Region {
	key := strings.Join(strings.Fields(strings.ToUpper(value)), " ")
	if r, ok := regionAliases[key]; ok {
		return r
	}
	return Region(key)
}

// IsSpecified reports whether the region can be used as a grouping key.
func (r Region) IsSpecified() bool {
	return r != "" && r != RegionUnspecified
}

// NormalizeCategory maps a 311 complaint type to the request categories used
// across the service. Unrecognized types are converted to snake case.
func NormalizeCategory(complaintType string) string {
	lower := strings.ToLower(strings.TrimSpace(complaintType))
	switch {
	case lower == "":
		return "other"
	case strings.Contains(lower, "missed") || strings.Contains(lower, "collection"):
		return "missed_pickup"
	case strings.Contains(lower, "overflow"):
		return CategoryOverflow
	case strings.Contains(lower, "dumping") || strings.Contains(lower, "illegal"):
		return "illegal_dumping"
	case strings.Contains(lower, "container") || strings.Contains(lower, "damaged"):
		return "damaged_container"
	default:
		return snakeCase(lower)
	}
}

// NormalizeWasteType maps DSNY waste stream names to a small vocabulary.
func NormalizeWasteType(wasteType string) string {
	lower := strings.ToLower(strings.TrimSpace(wasteType))
	switch {
	case lower == "":
		return "residential"
	case strings.Contains(lower, "refuse") || strings.Contains(lower, "residential"):
		return "residential"
	case strings.Contains(lower, "commercial"):
		return "commercial"
	case strings.Contains(lower, "paper") || strings.Contains(lower, "mgp") || strings.Contains(lower, "recycl"):
		return "recycling"
	case strings.Contains(lower, "organic") || strings.Contains(lower, "compost") || strings.Contains(lower, "leaves"):
		return "organic"
	default:
		return snakeCase(lower)
	}
}

// NormalizePriority returns the canonical priority, defaulting to normal.
func NormalizePriority(value string) Priority {
	lower := strings.ToLower(strings.TrimSpace(value))
	switch {
	case strings.Contains(lower, "urgent"):
		return PriorityUrgent
	case strings.Contains(lower, "high"):
		return PriorityHigh
	case strings.Contains(lower, "low"):
		return PriorityLow
	default:
		return PriorityNormal
	}
}

// NormalizeStatus returns the canonical status for the record kind.
// Collections default to completed, service requests to open.
func NormalizeStatus(kind Kind, value string) Status {
	lower := strings.ToLower(strings.TrimSpace(value))
	switch {
	case strings.Contains(lower, "missed"):
		return StatusMissed
	case strings.Contains(lower, "partial"):
		return StatusPartial
	case strings.Contains(lower, "complete"):
		return StatusCompleted
	case strings.Contains(lower, "closed") || strings.Contains(lower, "resolved"):
		return StatusClosed
	case strings.Contains(lower, "progress") || strings.Contains(lower, "assigned"):
		return StatusInProgress
	}
	if kind == KindCollection {
		return StatusCompleted
	}
	return StatusOpen
}

func snakeCase(s string) string {
	var b strings.Builder
	underscore := false
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if underscore && b.Len() > 0 {
				b.WriteByte('_')
			}
			underscore = false
			b.WriteRune(r)
			continue
		}
		underscore = true
	}
	if b.Len() == 0 {
		return "other"
	}
	return b.String()
}
