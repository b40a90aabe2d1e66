package audit

import (
	"iter"

	"github.com/rs/zerolog"
)

// OptionalEvent collects fields for a nested dictionary that is only written
// when at least one field was set. Zero values are skipped.
type OptionalEvent struct {
	ev       *zerolog.Event
	modified bool
}

func NewOptionalEvent(e *zerolog.Event) *OptionalEvent {
	return &OptionalEvent{ev: e}
}

func (oe *OptionalEvent) event() *zerolog.Event {
	if oe.ev == nil {
		oe.ev = zerolog.Dict()
		oe.modified = false
	}
	return oe.ev
}

// Set writes the dictionary to parent under key, if any field was set.
func (oe *OptionalEvent) Set(parent *zerolog.Event, key string) bool {
	if oe.modified {
		parent.Dict(key, oe.event())
		return true
	}
	return false
}

func (oe *OptionalEvent) Str(key, val string) *OptionalEvent {
	if val == "" {
		return oe
	}
	oe.event().Str(key, val)
	oe.modified = true
	return oe
}

func (oe *OptionalEvent) Int64(key string, val int64) *OptionalEvent {
	if val == 0 {
		return oe
	}
	oe.event().Int64(key, val)
	oe.modified = true
	return oe
}

// arr adapts vals for Arr. A nil slice is omitted; an empty slice is written
// as an empty array.
func arr[T zerolog.LogObjectMarshaler](vals []T) iter.Seq[zerolog.LogObjectMarshaler] {
	if vals == nil {
		return nil
	}

	return func(yield func(zerolog.LogObjectMarshaler) bool) {
		for _, v := range vals {
			if !yield(v) {
				return
			}
		}
	}
}

func (oe *OptionalEvent) Arr(key string, val iter.Seq[zerolog.LogObjectMarshaler]) *OptionalEvent {
	if val == nil {
		return oe
	}

	arr := zerolog.Arr()
	for v := range val {
		arr.Object(v)
	}

	oe.event().Array(key, arr)
	oe.modified = true

	return oe
}
