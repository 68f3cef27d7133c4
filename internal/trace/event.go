package trace

import "time"

// Kind represents the type of trace event.
type Kind uint8

const (
	// KindSpanBegin marks the start of a logical operation.
	KindSpanBegin Kind = iota + 1
	// KindSpanEnd marks the end of a logical operation.
	KindSpanEnd
	// KindPoint represents an instant event.
	KindPoint
	KindHeartbeat // periodic liveness signal
)

var kindNames = [...]string{
	KindSpanBegin: "begin",
	KindSpanEnd:   "end",
	KindPoint:     "point",
	KindHeartbeat: "heartbeat",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "unknown"
}

// Scope is the granularity of an event. Coarser scopes have lower values.
type Scope uint8

const (
	// ScopeDriver covers a whole CLI command.
	ScopeDriver Scope = iota + 1
	// ScopeUnit covers one input module (load, lower, collect, write).
	ScopeUnit
	// ScopePass covers one accessor declaration inside the lowering pass.
	ScopePass
	// ScopeCallSite is emitted per rewritten call site.
	ScopeCallSite
)

var scopeNames = [...]string{
	ScopeDriver:   "driver",
	ScopeUnit:     "unit",
	ScopePass:     "pass",
	ScopeCallSite: "callsite",
}

func (s Scope) String() string {
	if int(s) < len(scopeNames) && scopeNames[s] != "" {
		return scopeNames[s]
	}
	return "unknown"
}

// Event is one trace record. Seq is assigned by the sink that stores it.
type Event struct {
	Time     time.Time
	Seq      uint64
	Kind     Kind
	Scope    Scope
	SpanID   uint64 // 0 for points and heartbeats
	ParentID uint64
	GID      uint64 // goroutine that emitted the event
	Name     string // e.g. "lower", "unit:kernel.scir", "accessor:_Z27..."
	Detail   string
	Extra    map[string]string
}
