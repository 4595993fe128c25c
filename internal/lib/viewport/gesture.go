package viewport

import (
	"fmt"
	"strings"
	"time"
)

// DragThreshold is the cumulative pointer travel in pixels that turns a
// press into a drag
const DragThreshold = 4.0

const (
	TooltipDuration = 3 * time.Second
	HintDuration    = 4 * time.Second
)

// Gesture is the pointer gesture state
type Gesture int

const (
	Idle Gesture = iota
	PendingDrag
	Dragging
)

func (g Gesture) String() string {
	switch g {
	case Idle:
		return "idle"
	case PendingDrag:
		return "pending-drag"
	case Dragging:
		return "dragging"
	}
	return fmt.Sprintf("gesture(%d)", int(g))
}

func (g Gesture) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

func (g *Gesture) UnmarshalText(b []byte) error {
	for _, candidate := range []Gesture{Idle, PendingDrag, Dragging} {
		if candidate.String() == string(b) {
			*g = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown gesture %q", b)
}

// PointerKind is the type of pointer event
type PointerKind int

const (
	PointerDown PointerKind = iota
	PointerMove
	PointerUp
	PointerCancel
)

var pointerKinds = map[string]PointerKind{
	"down":   PointerDown,
	"move":   PointerMove,
	"up":     PointerUp,
	"cancel": PointerCancel,
}

func (k *PointerKind) UnmarshalText(b []byte) error {
	kind, ok := pointerKinds[strings.ToLower(string(b))]
	if !ok {
		return fmt.Errorf("unknown pointer event kind %q", b)
	}
	*k = kind
	return nil
}

func (k PointerKind) MarshalText() ([]byte, error) {
	for name, kind := range pointerKinds {
		if kind == k {
			return []byte(name), nil
		}
	}
	return nil, fmt.Errorf("unknown pointer event kind %d", int(k))
}

// PointerEvent is a pointer event in surface pixels
type PointerEvent struct {
	Kind PointerKind `json:"kind"`
	X    float64     `json:"x"`
	Y    float64     `json:"y"`
}

// Timer is a pending callback that can be cancelled
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
