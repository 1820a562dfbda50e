// Package calendar defines the timeline data model and the Adapter contract
// that every event source implements.
//
// Concrete adapters live in sub-packages:
//   - memory: in-process reference store over an ordered slice.
//   - recurring: read-only projection of weekly templates onto dates.
//   - rest: HTTP client for the /events wire shape.
//   - sqlite, postgres: persistent stores.
//   - ics: read-only iCalendar feed with RRULE expansion.
//   - multi: a writable primary combined with read-only overlays.
//   - instrument: tracing, metrics and logging around any adapter.
//
// Errors are reported through the sentinels in errors.go so callers can use
// errors.Is across adapters, including across the REST hop.
package calendar
