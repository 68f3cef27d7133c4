package driver

import "time"

// Stage identifies a step of lowering one unit.
type Stage string

const (
	// StageLoad reads and validates the input module.
	StageLoad Stage = "load"
	// StageLower runs the spec constant pass.
	StageLower Stage = "lower"
	// StageCollect rebuilds the ID mapping from the lowered module.
	StageCollect Stage = "collect"
	// StageWrite stores the lowered module and its metadata.
	StageWrite Stage = "write"
)

// Status describes the state of a unit.
type Status string

const (
	// StatusQueued indicates the unit is waiting for a worker.
	StatusQueued Status = "queued"
	// StatusWorking indicates the unit is inside Stage.
	StatusWorking Status = "working"
	// StatusCached indicates the lowered unit came from the cache.
	StatusCached Status = "cached"
	// StatusDone indicates the unit finished.
	StatusDone Status = "done"
	// StatusError indicates the unit failed.
	StatusError Status = "error"
)

// Event reports progress for a unit (or for the whole batch when Unit is empty).
type Event struct {
	Unit    string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events. Lower calls it from several
// goroutines.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

type nopSink struct{}

func (nopSink) OnEvent(Event) {}
