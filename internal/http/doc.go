// Package http serves the timeline REST wire shape over any calendar.Adapter.
//
// The router exposes the following endpoints:
//   - GET /events?start=<RFC3339>&end=<RFC3339>: events overlapping the
//     half-open range, as a JSON array of TimelineEvent.
//   - POST /events: creates an event from a TimelineEvent body without an id.
//     Responds 201 with the stored record.
//   - PATCH /events/{id}: merges a partial TimelineEvent body. The id in the
//     path always wins. Responds 200 with the updated record.
//   - DELETE /events/{id}: responds 204 No Content.
//   - GET /events.ics?start=&end=: the same range as an iCalendar document.
//     Without a range the current week through the next eight weeks is used.
//   - GET /healthz: liveness, plus the store health check when configured.
//   - GET /metrics: Prometheus exposition when metrics are enabled.
//
// Errors are JSON {"message","error_kind"} bodies. not_found maps to 404,
// read_only to 405, invalid_range to 422, malformed input to 400 and
// anything else to 500, or 502 when an upstream calendar API failed.
package http
