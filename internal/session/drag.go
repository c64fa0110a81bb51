package session

import "github.com/Epistemic-Technology/pdf-regions/models"

// DragState is the state of a mouse drag.
type DragState int

const (
	Idle DragState = iota
	Dragging
)

func (s DragState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	default:
		return "unknown"
	}
}

// Drag turns press/move/release events in display coordinates into a
// finished rectangle.
type Drag struct {
	state    DragState
	startX   float64
	startY   float64
	currentX float64
	currentY float64
}

// State returns the current state.
func (d *Drag) State() DragState {
	return d.state
}

// Press starts a drag at (x, y). A press while dragging restarts the drag.
func (d *Drag) Press(x, y float64) {
	d.state = Dragging
	d.startX, d.startY = x, y
	d.currentX, d.currentY = x, y
}

// Move updates the moving corner. It is ignored while idle.
func (d *Drag) Move(x, y float64) {
	if d.state != Dragging {
		return
	}
	d.currentX, d.currentY = x, y
}

// Release ends the drag at (x, y) and returns the normalised rectangle. ok is
// false when no drag was in progress.
func (d *Drag) Release(x, y float64) (rect models.DisplayRect, ok bool) {
	if d.state != Dragging {
		return models.DisplayRect{}, false
	}
	d.Move(x, y)
	d.state = Idle
	return models.NewDisplayRect(d.startX, d.startY, d.currentX, d.currentY), true
}

// Preview returns the rectangle spanned so far, for drawing a rubber band.
func (d *Drag) Preview() (models.DisplayRect, bool) {
	if d.state != Dragging {
		return models.DisplayRect{}, false
	}
	return models.NewDisplayRect(d.startX, d.startY, d.currentX, d.currentY), true
}

// Cancel abandons a drag in progress.
func (d *Drag) Cancel() {
	d.state = Idle
}
