package card

import (
	"errors"
	"fmt"
	"sync"
)

// State is one phase of the upload flow
type State string

const (
	StateIdle       State = "idle"
	StateAcquiring  State = "acquiring"
	StateExtracting State = "extracting"
	StatePersisting State = "persisting"
)

// Modal is one of the overlay states a client can be in. At most one modal is
// open at a time; modal transitions never block the upload flow.
type Modal string

const (
	ModalNone          Modal = "none"
	ModalCamera        Modal = "camera"
	ModalEdit          Modal = "edit"
	ModalDeleteConfirm Modal = "deleteConfirm"
)

// ErrFlowBusy is returned when an upload flow is started while another one is
// still in progress.
var ErrFlowBusy = errors.New("an upload is already in progress")

// TransitionError reports an upload-flow transition that is not allowed.
type TransitionError struct {
	From State
	To   State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid flow transition from %s to %s", e.From, e.To)
}

// nextState is the only forward transition allowed from each non-idle state
var nextState = map[State]State{
	StateAcquiring:  StateExtracting,
	StateExtracting: StatePersisting,
}

// Snapshot is a point-in-time view of the controller state
type Snapshot struct {
	State      State  `json:"state"`
	Modal      Modal  `json:"modal"`
	SelectedID string `json:"selectedId,omitempty"`
	Message    string `json:"message,omitempty"`
}

// Controller holds the view state: the upload flow machine, the open modal,
// the selected card and the last status message. Any failure drops the flow
// back to idle, records a message and runs every registered cleanup hook, so
// acquired resources are released on every exit path.
type Controller struct {
	mu         sync.Mutex
	state      State
	modal      Modal
	selectedID string
	message    string
	cleanups   []func()
}

// NewController creates a Controller in the idle state
func NewController() *Controller {
	return &Controller{
		state: StateIdle,
		modal: ModalNone,
	}
}

// OnCleanup registers a hook that runs every time the flow returns to idle,
// whether it finished or failed.
func (c *Controller) OnCleanup(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanups = append(c.cleanups, fn)
}

// Begin starts an upload flow. Only one flow may be in progress at a time.
func (c *Controller) Begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateIdle {
		return ErrFlowBusy
	}
	c.state = StateAcquiring
	c.message = ""
	return nil
}

// Advance moves the flow forward one phase
func (c *Controller) Advance(to State) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if nextState[c.state] != to {
		return &TransitionError{From: c.state, To: to}
	}
	c.state = to
	return nil
}

// Finish returns the flow to idle after a successful persist
func (c *Controller) Finish(message string) {
	c.mu.Lock()
	c.settle(message)
	cleanups := c.cleanups
	c.mu.Unlock()
	runAll(cleanups)
}

// Fail returns the flow to idle from any state, recording the failure message
func (c *Controller) Fail(message string) {
	c.mu.Lock()
	c.settle(message)
	cleanups := c.cleanups
	c.mu.Unlock()
	runAll(cleanups)
}

// settle resets the flow. The camera modal belongs to the upload flow and is
// closed with it; edit and delete confirmation modals are independent. Caller
// holds the lock.
func (c *Controller) settle(message string) {
	c.state = StateIdle
	c.message = message
	if c.modal == ModalCamera {
		c.modal = ModalNone
	}
}

func runAll(fns []func()) {
	for _, fn := range fns {
		fn()
	}
}

// SetMessage records a status message outside the upload flow
func (c *Controller) SetMessage(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.message = message
}

// Select marks a card as the one currently viewed. Selection is independent
// of the upload flow.
func (c *Controller) Select(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selectedID = id
}

// ClearSelection drops the current selection
func (c *Controller) ClearSelection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selectedID = ""
}

// DropSelection clears the selection only if the given card is selected,
// used when that card is deleted.
func (c *Controller) DropSelection(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selectedID == id {
		c.selectedID = ""
	}
}

// OpenModal opens an overlay. Only one modal may be open at a time.
func (c *Controller) OpenModal(m Modal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m == ModalNone {
		c.modal = ModalNone
		return nil
	}
	if c.modal != ModalNone && c.modal != m {
		return fmt.Errorf("modal %s is already open", c.modal)
	}
	c.modal = m
	return nil
}

// CloseModal closes whatever overlay is open
func (c *Controller) CloseModal() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.modal = ModalNone
}

// Snapshot returns a point-in-time view of the controller state
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		State:      c.state,
		Modal:      c.modal,
		SelectedID: c.selectedID,
		Message:    c.message,
	}
}
