package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// StopList is the ordered set of dish ids that are temporarily unavailable.
type StopList []int

func (s StopList) Contains(id int) bool {
	for _, v := range s {
		if v == id {
			return true
		}
	}
	return false
}

// Add appends id unless it is already present. Reports whether the list changed.
func (s *StopList) Add(id int) bool {
	if s.Contains(id) {
		return false
	}
	*s = append(*s, id)
	return true
}

// AddAll adds every id not yet present and returns how many were added.
func (s *StopList) AddAll(ids []int) int {
	n := 0
	for _, id := range ids {
		if s.Add(id) {
			n++
		}
	}
	return n
}

// Remove deletes id, keeping the order of the rest. Reports whether it was present.
func (s *StopList) Remove(id int) bool {
	for i, v := range *s {
		if v == id {
			*s = append((*s)[:i:i], (*s)[i+1:]...)
			return true
		}
	}
	return false
}

func (s StopList) Clone() StopList {
	out := make(StopList, len(s))
	copy(out, s)
	return out
}

// Dedup drops repeated ids, keeping first occurrences. Stored blobs edited by
// hand may contain duplicates.
func (s StopList) Dedup() StopList {
	out := make(StopList, 0, len(s))
	for _, id := range s {
		out.Add(id)
	}
	return out
}

// DeliveryStatus records a delivery suspension. A nil DisabledUntil means
// delivery is enabled.
type DeliveryStatus struct {
	DisabledUntil *time.Time
}

// DisabledAt reports whether delivery is suspended at instant now.
func (d DeliveryStatus) DisabledAt(now time.Time) bool {
	return d.DisabledUntil != nil && now.Before(*d.DisabledUntil)
}

// naive layouts written by older deployments without a UTC offset; they are
// read in the local zone.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

type deliveryStatusJSON struct {
	DisabledUntil *string `json:"disabled_until"`
}

func (d DeliveryStatus) MarshalJSON() ([]byte, error) {
	var v deliveryStatusJSON
	if d.DisabledUntil != nil {
		s := d.DisabledUntil.Format(time.RFC3339Nano)
		v.DisabledUntil = &s
	}
	return json.Marshal(v)
}

func (d *DeliveryStatus) UnmarshalJSON(data []byte) error {
	var raw map[string]*string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s, ok := raw["disabled_until"]
	if !ok {
		s = raw["disabledUntil"]
	}
	if s == nil || *s == "" {
		d.DisabledUntil = nil
		return nil
	}
	t, err := ParseTimestamp(*s)
	if err != nil {
		return err
	}
	d.DisabledUntil = &t
	return nil
}

// ParseTimestamp accepts RFC 3339 or a naive ISO-8601 local timestamp.
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

// State is the stop-list and delivery status, always read and written together.
type State struct {
	StopList StopList
	Delivery DeliveryStatus
}

// DefaultState is what a fresh document holds: nothing stopped, delivery on.
func DefaultState() State {
	return State{StopList: StopList{}}
}

func (s State) Clone() State {
	out := State{StopList: s.StopList.Clone()}
	if s.Delivery.DisabledUntil != nil {
		t := *s.Delivery.DisabledUntil
		out.Delivery.DisabledUntil = &t
	}
	return out
}
