// Package geo aggregates point-located events on a fixed latitude/longitude
// grid: density heatmaps, hotspot clusters, hotspot projections, and radius
// and bounding-box queries.
//
// Coordinates are quantized with floor(coord / grid), so binning is
// deterministic and independent of input order. Hotspot clustering merges
// occupied cells that touch, including diagonally. Two dense cells whose
// events straddle a cell edge but whose cells do not touch are not merged;
// this is a known approximation of density-based clustering.
package geo
