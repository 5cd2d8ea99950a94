package flows

import (
	"sync"
	"time"
)

// Draft holds one form's field values, its in-flight flag and at most one message.
// The zero value is an empty, idle draft.
type Draft[F any] struct {
	mu       sync.Mutex
	fields   F
	inFlight bool
	errMsg   string
	success  string
}

// View is a copy of a Draft taken at one instant, for rendering.
type View[F any] struct {
	Fields   F
	InFlight bool
	Error    string
	Success  string
}

func (d *Draft[F]) View() View[F] {
	d.mu.Lock()
	defer d.mu.Unlock()
	return View[F]{Fields: d.fields, InFlight: d.inFlight, Error: d.errMsg, Success: d.success}
}

// mount replaces the fields and clears messages. A submission already in flight keeps
// its flag and finishes against the new draft.
func (d *Draft[F]) mount(fields F) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fields = fields
	d.errMsg, d.success = "", ""
}

// begin starts an attempt: it fails when one is already in flight, otherwise applies
// update, clears both messages and marks the draft in flight.
func (d *Draft[F]) begin(update func(*F)) (F, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.inFlight {
		return d.fields, false
	}
	if update != nil {
		update(&d.fields)
	}
	d.inFlight = true
	d.errMsg, d.success = "", ""
	return d.fields, true
}

// fail ends the attempt with an error message.
func (d *Draft[F]) fail(msg string) {
	d.finish(msg, "")
}

// succeed ends the attempt with a success message (possibly empty).
func (d *Draft[F]) succeed(msg string) {
	d.finish("", msg)
}

func (d *Draft[F]) finish(errMsg, success string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.setLocked(errMsg, success)
	d.inFlight = false
}

// setMessage sets a message without touching the in-flight flag.
func (d *Draft[F]) setMessage(errMsg, success string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.setLocked(errMsg, success)
}

func (d *Draft[F]) setLocked(errMsg, success string) {
	if errMsg != "" {
		d.errMsg, d.success = errMsg, ""
		return
	}
	d.errMsg, d.success = "", success
}

// guard is an in-flight flag for an action that shares a Draft's messages but not its flag.
type guard struct {
	mu sync.Mutex
	on bool
}

func (g *guard) acquire() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.on {
		return false
	}
	g.on = true
	return true
}

func (g *guard) release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.on = false
}

func (g *guard) active() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.on
}

// Navigation tells the caller where to send the browser after an attempt.
type Navigation struct {
	Path     string
	Replace  bool
	Delay    time.Duration
	External bool
}

// Push navigates to path, adding a history entry.
func Push(path string) *Navigation {
	return &Navigation{Path: path}
}

// ReplaceWith navigates to path, replacing the current history entry.
func ReplaceWith(path string) *Navigation {
	return &Navigation{Path: path, Replace: true}
}
