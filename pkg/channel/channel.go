// Package channel holds the fixed set of analog input channels and the
// mutable subset of them selected for sampling.
package channel

import (
	"errors"
	"fmt"
	"iter"
	"strings"
)

// ID identifies a physical input (a pin number or an ADC input line).
// The meaning is up to the analog collaborator that reads it.
type ID uint32

var (
	// ErrEmpty is returned when a set is created without channels.
	ErrEmpty = errors.New("channel set must have at least one channel")
	// ErrLabelCount is returned when ids and labels are not index aligned.
	ErrLabelCount = errors.New("channel ids and labels differ in length")
	// ErrInvalidName is returned for a label or board name that cannot be
	// sent as a single field of an info reply.
	ErrInvalidName = errors.New("name contains a comma or line break")
)

// CheckName reports whether name can be carried as one comma separated
// field.
func CheckName(name string) error {
	if strings.ContainsAny(name, ",\r\n") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Description is a read-only snapshot of a Set used for info replies.
type Description struct {
	Count   int
	Labels  []string
	Enabled []bool
}

// Set is a fixed, ordered list of channels plus the selection of channels
// that are currently enabled. Channel order never changes; every iteration
// walks channels in ascending original index.
type Set struct {
	ids    []ID
	labels []string

	enabled      []bool
	enabledCount int
}

// New creates a channel set. The first channel starts enabled, the rest disabled.
func New(ids []ID, labels []string) (*Set, error) {
	if len(ids) == 0 {
		return nil, ErrEmpty
	}
	if len(ids) != len(labels) {
		return nil, fmt.Errorf("%w: %d ids, %d labels", ErrLabelCount, len(ids), len(labels))
	}
	for i, label := range labels {
		if err := CheckName(label); err != nil {
			return nil, fmt.Errorf("channel %d: %w", i, err)
		}
	}

	s := &Set{
		ids:     append([]ID(nil), ids...),
		labels:  append([]string(nil), labels...),
		enabled: make([]bool, len(ids)),
	}
	s.enabled[0] = true
	s.enabledCount = 1

	return s, nil
}

// Len returns the fixed number of channels.
func (s *Set) Len() int {
	return len(s.ids)
}

// EnabledCount returns how many channels are currently enabled.
func (s *Set) EnabledCount() int {
	return s.enabledCount
}

// ApplySelection replaces the enabled flags element-wise with mask.
// The mask must have at least Len() elements; extra elements are ignored.
func (s *Set) ApplySelection(mask []bool) {
	count := 0
	for i := range s.enabled {
		s.enabled[i] = mask[i]
		if mask[i] {
			count++
		}
	}
	s.enabledCount = count
}

// All yields every channel as (index, id) in ascending index order.
func (s *Set) All() iter.Seq2[int, ID] {
	return func(yield func(int, ID) bool) {
		for i, id := range s.ids {
			if !yield(i, id) {
				return
			}
		}
	}
}

// Enabled yields the enabled channels as (index, id) in ascending index order.
// The selection is read on every call, so the sequence always reflects the
// current state and can be ranged over any number of times.
func (s *Set) Enabled() iter.Seq2[int, ID] {
	return func(yield func(int, ID) bool) {
		for i, id := range s.ids {
			if !s.enabled[i] {
				continue
			}
			if !yield(i, id) {
				return
			}
		}
	}
}

// Describe returns a copy of the labels and enabled flags.
func (s *Set) Describe() Description {
	return Description{
		Count:   len(s.ids),
		Labels:  append([]string(nil), s.labels...),
		Enabled: append([]bool(nil), s.enabled...),
	}
}

// Label returns the label of channel i.
func (s *Set) Label(i int) string {
	return s.labels[i]
}

// Mask renders the selection as a string of '1' and '0', one per channel.
func (s *Set) Mask() string {
	var b strings.Builder
	b.Grow(len(s.enabled))
	for _, on := range s.enabled {
		if on {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}
