// Package events declares the lifecycle event payloads published by
// the prefetch planner.
package events

import "time"

// PlanStart is emitted when a planning pass begins for a root shape.
type PlanStart struct {
	Shape string
}

// PlanFinish is emitted once the fetch plan is computed.
type PlanFinish struct {
	Shape      string
	EagerPaths []string
	BatchPaths []string
	Err        error
	Duration   time.Duration
}

// FetchStart is emitted before the plan is applied to a record set.
// Kind is "lazy" for a query handle and "materialized" for records
// that are already loaded.
type FetchStart struct {
	Shape string
	Kind  string
	Paths []string
}

// FetchFinish is emitted after plan application.
type FetchFinish struct {
	Shape    string
	Kind     string
	Err      error
	Duration time.Duration
}

// RenderStart is emitted before the rendering step.
type RenderStart struct {
	Shape string
}

// RenderFinish is emitted after rendering.
type RenderFinish struct {
	Shape    string
	Err      error
	Duration time.Duration
}
