package entity

import "time"

type EntryKind string

const (
	EntryKindLocation   EntryKind = "location"
	EntryKindPassengers EntryKind = "passengers"
	EntryKindStatus     EntryKind = "status"
	EntryKindECR        EntryKind = "ecr"
	EntryKindInfo       EntryKind = "info"
)

// CacheEntry is one piece of an entity state, ordered by its event timestamp.
type CacheEntry interface {
	EntryKind() EntryKind
	At() time.Time
}

type LocationEntry struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Timestamp time.Time `json:"timestamp"`
}

type PassengerEntry struct {
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

type StatusEntry struct {
	Status    Status    `json:"status"`
	LastSeen  time.Time `json:"lastSeen"`
	Timestamp time.Time `json:"timestamp"`
}

type ECREntry struct {
	ECR          float64   `json:"ecr"`
	ResponseTime *float64  `json:"responseTime,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

type InfoEntry struct {
	Fields    map[string]string `json:"fields"`
	Timestamp time.Time         `json:"timestamp"`
}

func (e LocationEntry) EntryKind() EntryKind  { return EntryKindLocation }
func (e PassengerEntry) EntryKind() EntryKind { return EntryKindPassengers }
func (e StatusEntry) EntryKind() EntryKind    { return EntryKindStatus }
func (e ECREntry) EntryKind() EntryKind       { return EntryKindECR }
func (e InfoEntry) EntryKind() EntryKind      { return EntryKindInfo }

func (e LocationEntry) At() time.Time  { return e.Timestamp }
func (e PassengerEntry) At() time.Time { return e.Timestamp }
func (e StatusEntry) At() time.Time    { return e.Timestamp }
func (e ECREntry) At() time.Time       { return e.Timestamp }
func (e InfoEntry) At() time.Time      { return e.Timestamp }

// Snapshot groups the known entries of one entity. A nil entry is unknown.
type Snapshot struct {
	EntityID   string          `json:"entityId"`
	EntityType EntityType      `json:"entityType"`
	Location   *LocationEntry  `json:"location,omitempty"`
	Passengers *PassengerEntry `json:"passengers,omitempty"`
	Status     *StatusEntry    `json:"status,omitempty"`
	ECR        *ECREntry       `json:"ecr,omitempty"`
	Info       *InfoEntry      `json:"info,omitempty"`
}

func (s Snapshot) Key() Key {
	return Key{Type: s.EntityType, ID: s.EntityID}
}

// Entry returns the entry of the given kind, if known.
func (s Snapshot) Entry(kind EntryKind) (CacheEntry, bool) {
	switch kind {
	case EntryKindLocation:
		if s.Location != nil {
			return *s.Location, true
		}
	case EntryKindPassengers:
		if s.Passengers != nil {
			return *s.Passengers, true
		}
	case EntryKindStatus:
		if s.Status != nil {
			return *s.Status, true
		}
	case EntryKindECR:
		if s.ECR != nil {
			return *s.ECR, true
		}
	case EntryKindInfo:
		if s.Info != nil {
			return *s.Info, true
		}
	}

	return nil, false
}

// With returns a copy of the snapshot with entry replaced.
func (s Snapshot) With(entry CacheEntry) Snapshot {
	switch e := entry.(type) {
	case LocationEntry:
		s.Location = &e
	case PassengerEntry:
		s.Passengers = &e
	case StatusEntry:
		s.Status = &e
	case ECREntry:
		s.ECR = &e
	case InfoEntry:
		e.Fields = copyFields(e.Fields)
		s.Info = &e
	}

	return s
}

// Entries lists the known entries.
func (s Snapshot) Entries() []CacheEntry {
	ret := make([]CacheEntry, 0, 5)

	for _, kind := range []EntryKind{EntryKindLocation, EntryKindPassengers, EntryKindStatus, EntryKindECR, EntryKindInfo} {
		entry, ok := s.Entry(kind)
		if ok {
			ret = append(ret, entry)
		}
	}

	return ret
}

func copyFields(fields map[string]string) map[string]string {
	if fields == nil {
		return nil
	}

	ret := make(map[string]string, len(fields))
	for k, v := range fields {
		ret[k] = v
	}

	return ret
}
