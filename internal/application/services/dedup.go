package services

import (
	"strings"

	"github.com/medlocator/hospital-map/backend/internal/domain/providers"
	"github.com/medlocator/hospital-map/backend/pkg/geo"
)

// DefaultDedupRadiusMeters is how close two records must be to count as one place.
const DefaultDedupRadiusMeters = 30.0

// NameNormalizer reduces a facility name to a form comparable across providers.
type NameNormalizer interface {
	ComparableName(name string) string
}

// Deduplicator suppresses near-duplicate place records: two records are the same
// facility when they lie within the radius and one normalized name contains the other.
type Deduplicator struct {
	radiusMeters float64
	names        NameNormalizer
}

// NewDeduplicator creates a deduplicator
func NewDeduplicator(radiusMeters float64, names NameNormalizer) *Deduplicator {
	if radiusMeters <= 0 {
		radiusMeters = DefaultDedupRadiusMeters
	}
	return &Deduplicator{radiusMeters: radiusMeters, names: names}
}

type dedupEntry struct {
	record providers.PlaceRecord
	name   string
	point  geo.Point
}

// Dedupe returns records with near-duplicates merged into the earliest occurrence.
// The kept record takes missing contact fields, tags and specialties from the
// records merged into it. Records whose normalized name is empty are never merged.
func (d *Deduplicator) Dedupe(records []providers.PlaceRecord) []providers.PlaceRecord {
	kept := make([]*dedupEntry, 0, len(records))

	for _, r := range records {
		entry := &dedupEntry{
			record: r,
			name:   d.names.ComparableName(r.Name),
			point:  geo.Point{Latitude: r.Latitude, Longitude: r.Longitude},
		}

		merged := false
		if entry.name != "" {
			for _, k := range kept {
				if d.same(k, entry) {
					mergeInto(&k.record, r)
					merged = true
					break
				}
			}
		}
		if !merged {
			kept = append(kept, entry)
		}
	}

	out := make([]providers.PlaceRecord, len(kept))
	for i, k := range kept {
		out[i] = k.record
	}
	return out
}

func (d *Deduplicator) same(a, b *dedupEntry) bool {
	if a.name == "" || b.name == "" {
		return false
	}
	if geo.DistanceMeters(a.point.Latitude, a.point.Longitude, b.point.Latitude, b.point.Longitude) > d.radiusMeters {
		return false
	}
	return strings.Contains(a.name, b.name) || strings.Contains(b.name, a.name)
}

func mergeInto(dst *providers.PlaceRecord, src providers.PlaceRecord) {
	if dst.Phone == "" {
		dst.Phone = src.Phone
	}
	if dst.Address == "" {
		dst.Address = src.Address
	}
	if dst.Website == "" {
		dst.Website = src.Website
	}
	if dst.OpeningHours == "" {
		dst.OpeningHours = src.OpeningHours
	}
	if dst.Wheelchair == "" {
		dst.Wheelchair = src.Wheelchair
	}
	dst.Emergency = dst.Emergency || src.Emergency
	dst.Categories = appendMissing(dst.Categories, src.Categories)
	dst.Specialties = appendMissing(dst.Specialties, src.Specialties)
}

func appendMissing(dst, src []string) []string {
	for _, s := range src {
		found := false
		for _, d := range dst {
			if d == s {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, s)
		}
	}
	return dst
}
