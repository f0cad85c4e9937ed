package orderlist

import (
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Observation is one raw delivery fact read from the external source.
// Period is the raw period string derived from the anchor date.
type Observation struct {
	Period       string
	AnchorDate   time.Time
	ShipmentID   string
	Quantity     decimal.Decimal
	Status       DeliveryStatus
	Remark       string
	ShippedAt    *time.Time
	ETA          *time.Time
	ShipmentType string
}

// SkippedObservation records an observation dropped because its period was malformed.
type SkippedObservation struct {
	Period     string
	ShipmentID string
	Reason     string
}

// ShipmentSet is an insertion-ordered set of shipment ids.
type ShipmentSet struct {
	ids  []string
	seen map[string]struct{}
}

// NewShipmentSet creates an empty set
func NewShipmentSet() *ShipmentSet {
	return &ShipmentSet{seen: make(map[string]struct{})}
}

// Add trims id and records it. It reports whether id was new. Empty ids are ignored.
func (s *ShipmentSet) Add(id string) bool {
	id = strings.TrimSpace(id)
	if id == "" {
		return false
	}
	if _, ok := s.seen[id]; ok {
		return false
	}
	s.seen[id] = struct{}{}
	s.ids = append(s.ids, id)
	return true
}

// Contains reports whether the trimmed id is in the set
func (s *ShipmentSet) Contains(id string) bool {
	_, ok := s.seen[strings.TrimSpace(id)]
	return ok
}

// IDs returns the ids in insertion order
func (s *ShipmentSet) IDs() []string {
	return slices.Clone(s.ids)
}

// Len returns the number of ids
func (s *ShipmentSet) Len() int {
	return len(s.ids)
}

// BucketEntry is one observation placed in its period. Counted is set when the
// row adds to the period quantity: the first row for a shipment id, or any row
// without one.
type BucketEntry struct {
	Observation
	Counted bool
}

// Buckets is the result of grouping observations by period.
type Buckets struct {
	Periods   []PeriodKey
	Shipments map[PeriodKey]*ShipmentSet
	Entries   map[PeriodKey][]BucketEntry
	Skipped   []SkippedObservation
}

// BucketObservations groups observations into chronologically sorted periods with
// a deduplicated shipment set per period. Entries within a period keep anchor date
// order. Malformed periods are skipped.
func BucketObservations(observations []Observation) Buckets {
	sorted := slices.Clone(observations)
	slices.SortStableFunc(sorted, func(a, b Observation) int {
		return a.AnchorDate.Compare(b.AnchorDate)
	})

	b := Buckets{
		Shipments: make(map[PeriodKey]*ShipmentSet),
		Entries:   make(map[PeriodKey][]BucketEntry),
	}
	for _, obs := range sorted {
		key, err := ParsePeriodKey(obs.Period)
		if err != nil {
			b.Skipped = append(b.Skipped, SkippedObservation{
				Period:     obs.Period,
				ShipmentID: obs.ShipmentID,
				Reason:     err.Error(),
			})
			continue
		}
		set, ok := b.Shipments[key]
		if !ok {
			set = NewShipmentSet()
			b.Shipments[key] = set
			b.Periods = append(b.Periods, key)
		}
		counted := strings.TrimSpace(obs.ShipmentID) == "" || set.Add(obs.ShipmentID)
		b.Entries[key] = append(b.Entries[key], BucketEntry{Observation: obs, Counted: counted})
	}
	SortPeriods(b.Periods)
	return b
}

// FoldDeliveries aggregates observations into one Delivery per period. Within a
// period a shipment's quantity is counted once; later rows for the same shipment
// only refresh the annotation fields they carry. Rows without a shipment id are
// counted individually.
func FoldDeliveries(observations []Observation) (map[PeriodKey]Delivery, []SkippedObservation) {
	b := BucketObservations(observations)
	deliveries := make(map[PeriodKey]Delivery, len(b.Periods))
	for _, key := range b.Periods {
		d := Delivery{Period: key, Quantity: decimal.Zero}
		for _, entry := range b.Entries[key] {
			if entry.Counted {
				d.Quantity = d.Quantity.Add(entry.Quantity)
			}
			d.refreshAnnotations(entry.Observation)
		}
		if shipments := b.Shipments[key]; shipments.Len() > 0 {
			d.CargoNumbers = shipments.IDs()
		}
		deliveries[key] = d
	}
	return deliveries, b.Skipped
}

func (d *Delivery) refreshAnnotations(obs Observation) {
	if obs.Status != "" {
		d.Status = obs.Status
	}
	if r := strings.TrimSpace(obs.Remark); r != "" {
		d.Remark = r
	}
	if obs.ShippedAt != nil {
		d.ShippedAt = copyTime(obs.ShippedAt)
	}
	if obs.ETA != nil {
		d.ETA = copyTime(obs.ETA)
	}
	if t := strings.TrimSpace(obs.ShipmentType); t != "" {
		d.ShipmentType = t
	}
}
