// Package eventset stores the events of a single execution lane of a trace: state intervals, communication events,
// point events, counter samples and annotations.
//
// A Set is populated once by a loader and treated as immutable afterwards. All lookups assume that each event kind
// ends up sorted by time, and that the state events of a lane don't overlap, so that both their start and end
// times are sorted.
package eventset

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"honnef.co/go/tracestore/mem"
)

type Timestamp uint64

// NoEvent is returned by lookups that didn't find a matching event, and is used for unset links between events.
const NoEvent = -1

// MaxStateID is the largest state ID a set accepts.
const MaxStateID = math.MaxUint16

var (
	ErrInvalidInterval = errors.New("interval ends before it starts")
	ErrOutOfOrder      = errors.New("event is out of order")
	ErrStateID         = errors.New("state ID out of range")
)

type State struct {
	Start Timestamp
	End   Timestamp
	ID    int
	// Active task and frame, 0 if none.
	Task  uint64
	Frame uint64

	// Indices into Set.Singles of the task execution start and end events enclosing this state, or NoEvent. Set by
	// LinkTaskExecutionBounds.
	TexecStart int
	TexecEnd   int
}

func (s *State) Duration() Timestamp { return s.End - s.Start }

type CommKind uint8

const (
	CommSteal CommKind = iota
	CommPush
	CommDataRead
	CommDataWrite
	CommUnknown
)

func (k CommKind) String() string {
	switch k {
	case CommSteal:
		return "steal"
	case CommPush:
		return "push"
	case CommDataRead:
		return "data read"
	case CommDataWrite:
		return "data write"
	case CommUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("CommKind(%d)", k)
	}
}

type Comm struct {
	Time Timestamp
	Kind CommKind
	Size uint64
	// Source and destination lane.
	Src, Dst int
	Task     uint64
	Frame    uint64
	// Address of the memory object that was communicated.
	What uint64

	TexecStart int
	TexecEnd   int
}

type SingleKind uint8

const (
	SingleTaskCreate SingleKind = iota
	SingleTexecStart
	SingleTexecEnd
	SingleUnknown
)

func (k SingleKind) String() string {
	switch k {
	case SingleTaskCreate:
		return "task create"
	case SingleTexecStart:
		return "texec start"
	case SingleTexecEnd:
		return "texec end"
	case SingleUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("SingleKind(%d)", k)
	}
}

type Single struct {
	Time  Timestamp
	Kind  SingleKind
	Task  uint64
	Frame uint64

	// Links to the neighbouring task execution start and end events, as indices into Set.Singles. Set by
	// LinkTaskExecutionBounds.
	PrevTexecStart int
	PrevTexecEnd   int
	NextTexecStart int
	NextTexecEnd   int
}

type Annotation struct {
	Time Timestamp
	Text string
}

// Set holds the events of one lane. The zero value is an empty set for lane 0.
type Set struct {
	Lane int

	States   []State
	Comms    []Comm
	Singles  []Single
	Counters []Counter

	annotations mem.BucketSlice[Annotation]

	// Bounds of the lane, spanning all events of all kinds. Only meaningful once the set has events.
	FirstStart Timestamp
	LastEnd    Timestamp
	hasEvents  bool

	// One more than the highest state ID.
	NumStates int

	counterIndex map[int]int
	executions   []Execution

	// Guards the lazily computed commByKind, which is valid while commSorted is set.
	commMu     sync.Mutex
	commSorted bool
	commByKind []int
}

func New(lane int) *Set {
	return &Set{Lane: lane}
}

// Bounds returns the interval covered by the lane's events. ok is false if the set has no events.
func (s *Set) Bounds() (start, end Timestamp, ok bool) {
	if !s.hasEvents {
		return 0, 0, false
	}
	return s.FirstStart, s.LastEnd, true
}

func (s *Set) extend(start, end Timestamp) {
	if !s.hasEvents {
		s.FirstStart, s.LastEnd, s.hasEvents = start, end, true
		return
	}
	if start < s.FirstStart {
		s.FirstStart = start
	}
	if end > s.LastEnd {
		s.LastEnd = end
	}
}

// AddState appends a state event. Links to task execution events are reset.
func (s *Set) AddState(ev State) error {
	if ev.End < ev.Start {
		return fmt.Errorf("state %d [%d, %d]: %w", ev.ID, ev.Start, ev.End, ErrInvalidInterval)
	}
	if ev.ID < 0 || ev.ID > MaxStateID {
		return fmt.Errorf("state %d [%d, %d]: %w", ev.ID, ev.Start, ev.End, ErrStateID)
	}
	ev.TexecStart = NoEvent
	ev.TexecEnd = NoEvent
	s.States = append(s.States, ev)
	s.extend(ev.Start, ev.End)
	if ev.ID >= s.NumStates {
		s.NumStates = ev.ID + 1
	}
	return nil
}

func (s *Set) AddComm(ev Comm) {
	ev.TexecStart = NoEvent
	ev.TexecEnd = NoEvent
	s.Comms = append(s.Comms, ev)
	s.extend(ev.Time, ev.Time)
	s.commSorted = false
}

func (s *Set) AddSingle(ev Single) {
	ev.PrevTexecStart = NoEvent
	ev.PrevTexecEnd = NoEvent
	ev.NextTexecStart = NoEvent
	ev.NextTexecEnd = NoEvent
	s.Singles = append(s.Singles, ev)
	s.extend(ev.Time, ev.Time)
}

// AddAnnotation inserts an annotation, keeping annotations sorted by time. Annotations with identical times keep
// their insertion order.
func (s *Set) AddAnnotation(a Annotation) {
	s.annotations.Append(a)
	for i := s.annotations.Len() - 1; i > 0 && s.annotations.Ptr(i-1).Time > a.Time; i-- {
		s.annotations.Swap(i-1, i)
	}
	s.extend(a.Time, a.Time)
}
