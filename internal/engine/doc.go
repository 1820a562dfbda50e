// Package engine holds the reactive state behind a timeline view: the event
// cache (EventStore), navigation (ViewState), selection and drag gestures.
//
// Each state type exposes plain getters plus Subscribe for change
// notification. Listeners run synchronously after the change is visible to
// getters.
package engine
