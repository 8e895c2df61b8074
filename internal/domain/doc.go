// Package domain models municipal sanitation service requests and waste
// collection records, and the value objects produced by the analytics core.
//
// # Data Source
//
// Records originate from NYC 311 service-request exports and DSNY collection
// logs. An upstream collector publishes each row as flat JSON ([RawRecord]) to
// the Kafka source topic. Field names follow the NYC Open Data column names in
// snake case (unique_key, created_date, complaint_type, borough, ...).
//
// # Record Conventions
//
// Record type:
//
//	"service_request" (default when empty) or "collection".
//
// Time format:
//
//	created_date is ISO-8601 local time without offset, e.g.
//	"2024-03-14T08:21:00.000". RFC3339, second precision, and bare dates are
//	also accepted. All timestamps are treated as UTC. When created_date is
//	missing the Kafka message time is used.
//
// Regions:
//
//	Borough names are normalized once at the ingestion boundary into the
//	canonical [Region] enumeration (MANHATTAN, BROOKLYN, QUEENS, BRONX,
//	STATEN ISLAND). "Unspecified" and empty values become [RegionUnspecified],
//	which carries no grouping key.
//
// Zones:
//
//	zone_id is used verbatim when present. Otherwise it is derived from the
//	311 community board column: "12 MANHATTAN" → "MN-12".
//
// Coordinates:
//
//	latitude/longitude strings are parsed as WGS-84 degrees. Missing,
//	unparsable, out-of-range, or (0,0) values leave the event without a
//	location. Such events can be forward-geocoded from incident_address.
//
// Priority and urgency:
//
//	Priority is one of low, normal, high, urgent (default normal). Events with
//	priority high or urgent count toward a heat cell's urgent_count.
//
// # ID Generation
//
// unique_key is used as the event ID when present. Otherwise the ID is a
// deterministic SHA-256 prefix of kind|created|category|borough|lat|lon so that
// replaying the same record yields the same ID.
package domain
