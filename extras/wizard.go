package extras

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yeremiapane/storefront-orders/cart"
)

var (
	ErrNoActiveStep   = errors.New("no extras step in progress")
	ErrUnknownOption  = errors.New("option does not belong to this group")
	ErrBelowZero      = errors.New("option counter cannot go below zero")
	ErrSlotsExceeded  = errors.New("all selections for this item are already allocated")
	ErrSingleChoice   = errors.New("this group allows a single option only")
	ErrNotConfirmable = errors.New("selections must add up exactly to the required amount")
	ErrNotSkippable   = errors.New("this group is required")
	ErrCartChanged    = errors.New("cart changed while configuring extras")
)

// StepView is what the customer sees for the current step.
type StepView struct {
	Step
	Position   int            `json:"position"`
	TotalSteps int            `json:"total_steps"`
	Counters   map[string]int `json:"counters"`
	Selected   int            `json:"selected"`
	CanConfirm bool           `json:"can_confirm"`
}

// Wizard consumes a finite list of steps one at a time. Counters of the current
// step are pending until Confirm; Cancel drops them together with every step
// not reached yet.
type Wizard struct {
	steps     []Step
	pos       int
	counters  []int
	cancelled bool
}

func NewWizard(steps []Step) *Wizard {
	w := &Wizard{steps: steps}
	w.resetCounters()
	return w
}

func (w *Wizard) Done() bool {
	return !w.cancelled && w.pos >= len(w.steps)
}

func (w *Wizard) Cancelled() bool {
	return w.cancelled
}

func (w *Wizard) Remaining() int {
	if w.cancelled {
		return 0
	}
	return len(w.steps) - w.pos
}

func (w *Wizard) Current() (StepView, bool) {
	st, ok := w.current()
	if !ok {
		return StepView{}, false
	}
	counters := make(map[string]int, len(st.Group.Options))
	for i, opt := range st.Group.Options {
		counters[opt] += w.counters[i]
	}
	return StepView{
		Step:       st,
		Position:   w.pos + 1,
		TotalSteps: len(w.steps),
		Counters:   counters,
		Selected:   w.selected(),
		CanConfirm: w.CanConfirm(),
	}, true
}

func (w *Wizard) Increment(option string) error {
	st, ok := w.current()
	if !ok {
		return ErrNoActiveStep
	}
	idx := optionIndex(st.Group.Options, option)
	if idx < 0 {
		return ErrUnknownOption
	}
	if w.selected()+1 > st.Slots {
		return ErrSlotsExceeded
	}
	if !st.Group.AllowMultiple {
		for i, n := range w.counters {
			if i != idx && n > 0 {
				return ErrSingleChoice
			}
		}
	}
	w.counters[idx]++
	return nil
}

func (w *Wizard) Decrement(option string) error {
	st, ok := w.current()
	if !ok {
		return ErrNoActiveStep
	}
	idx := optionIndex(st.Group.Options, option)
	if idx < 0 {
		return ErrUnknownOption
	}
	if w.counters[idx]-1 < 0 {
		return ErrBelowZero
	}
	w.counters[idx]--
	return nil
}

// CanConfirm holds only when the selections equal the required slots exactly.
// A group without options can always be confirmed with no selections.
func (w *Wizard) CanConfirm() bool {
	st, ok := w.current()
	if !ok {
		return false
	}
	if len(st.Group.Options) == 0 {
		return true
	}
	return w.selected() == st.Slots
}

// Confirm writes the current selections into the cart item's details and advances.
func (w *Wizard) Confirm(c *cart.Cart) error {
	st, ok := w.current()
	if !ok {
		return ErrNoActiveStep
	}
	if !w.CanConfirm() {
		return ErrNotConfirmable
	}
	items := c.Items()
	if st.ItemIndex >= len(items) || items[st.ItemIndex].ID != st.ItemID {
		return ErrCartChanged
	}

	if text := w.render(st); text != "" {
		c.AppendDetails(st.ItemIndex, text)
	}
	w.advance()
	return nil
}

// Skip advances past an optional group, or a group with nothing to choose from,
// without touching the cart.
func (w *Wizard) Skip() error {
	st, ok := w.current()
	if !ok {
		return ErrNoActiveStep
	}
	if st.Group.Required && len(st.Group.Options) > 0 {
		return ErrNotSkippable
	}
	w.advance()
	return nil
}

// Cancel aborts the whole flow. Details committed by earlier steps stay in the cart.
func (w *Wizard) Cancel() {
	w.cancelled = true
	w.steps = nil
	w.pos = 0
	w.counters = nil
}

func (w *Wizard) current() (Step, bool) {
	if w.cancelled || w.pos >= len(w.steps) {
		return Step{}, false
	}
	return w.steps[w.pos], true
}

func (w *Wizard) advance() {
	w.pos++
	w.resetCounters()
}

func (w *Wizard) resetCounters() {
	if st, ok := w.current(); ok {
		w.counters = make([]int, len(st.Group.Options))
		return
	}
	w.counters = nil
}

func (w *Wizard) selected() int {
	sum := 0
	for _, n := range w.counters {
		sum += n
	}
	return sum
}

func (w *Wizard) render(st Step) string {
	var parts []string
	for i, opt := range st.Group.Options {
		if w.counters[i] > 0 {
			parts = append(parts, fmt.Sprintf("%s x%d", opt, w.counters[i]))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return st.Group.Name + ": " + strings.Join(parts, ", ")
}

func optionIndex(options []string, option string) int {
	for i, opt := range options {
		if opt == option {
			return i
		}
	}
	return -1
}
