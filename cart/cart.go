// Package cart holds the in-memory selection of one customer session.
package cart

// Upper bounds for a single entry. Quantity times PiecesPerUnit stays small
// enough for the extras counters and the order total.
const (
	MaxQuantity      = 99
	MaxPiecesPerUnit = 50
)

// Item is one cart entry. Name and UnitPrice are a snapshot taken when the item
// was first added and are never re-read from the catalog.
type Item struct {
	ID             uint    `json:"id"`
	Name           string  `json:"name"`
	UnitPrice      float64 `json:"unit_price"`
	Quantity       int     `json:"quantity"`
	ImageRef       string  `json:"image_ref,omitempty"`
	RequiresGroupA bool    `json:"requires_guisos"`
	RequiresGroupB bool    `json:"requires_salsas"`
	ExtraGroupIDs  []uint  `json:"extra_group_ids,omitempty"`
	PiecesPerUnit  int     `json:"pieces_per_unit"`
	Details        string  `json:"details"`
	Comment        string  `json:"comment"`
}

// SlotsRequired is the number of extras selections owed per configured group.
func (it Item) SlotsRequired() int {
	return it.Quantity * it.PiecesPerUnit
}

func (it Item) Subtotal() float64 {
	return it.UnitPrice * float64(it.Quantity)
}

func (it Item) clone() Item {
	if it.ExtraGroupIDs != nil {
		it.ExtraGroupIDs = append([]uint(nil), it.ExtraGroupIDs...)
	}
	return it
}

// Cart is owned by exactly one session and is not safe for concurrent use;
// the session serialises access.
type Cart struct {
	items []Item
}

func New() *Cart {
	return &Cart{}
}

// Add increments an existing entry with the same id or appends a new one.
// For an existing entry the extras requirements are overwritten and Details is kept as is.
// The resulting quantity saturates at MaxQuantity.
func (c *Cart) Add(item Item, qty int) {
	if qty <= 0 {
		qty = 1
	}
	qty = clampQuantity(qty)
	item.PiecesPerUnit = clampPieces(item.PiecesPerUnit)

	if i := c.indexOf(item.ID); i >= 0 {
		existing := &c.items[i]
		existing.Quantity = clampQuantity(existing.Quantity + qty)
		existing.RequiresGroupA = item.RequiresGroupA
		existing.RequiresGroupB = item.RequiresGroupB
		existing.ExtraGroupIDs = append([]uint(nil), item.ExtraGroupIDs...)
		existing.PiecesPerUnit = item.PiecesPerUnit
		return
	}

	item = item.clone()
	item.Quantity = qty
	item.Details = ""
	c.items = append(c.items, item)
}

// UpdateQuantity sets the quantity; zero or negative removes the entry.
// Values above MaxQuantity are capped.
func (c *Cart) UpdateQuantity(id uint, qty int) {
	i := c.indexOf(id)
	if i < 0 {
		return
	}
	if qty <= 0 {
		c.RemoveAt(i)
		return
	}
	c.items[i].Quantity = clampQuantity(qty)
}

// Quantity of the entry with id, zero when absent.
func (c *Cart) Quantity(id uint) int {
	if i := c.indexOf(id); i >= 0 {
		return c.items[i].Quantity
	}
	return 0
}

// RemoveOrdered takes a snapshot previously returned by Items out of the cart.
// Each matching entry loses the ordered quantity and is dropped once nothing
// is left; anything added after the snapshot stays.
func (c *Cart) RemoveOrdered(ordered []Item) {
	for _, it := range ordered {
		i := c.indexOf(it.ID)
		if i < 0 {
			continue
		}
		left := c.items[i].Quantity - it.Quantity
		if left <= 0 {
			c.RemoveAt(i)
			continue
		}
		c.items[i].Quantity = left
		c.items[i].Details = ""
	}
}

func (c *Cart) RemoveAt(index int) {
	if index < 0 || index >= len(c.items) {
		return
	}
	c.items = append(c.items[:index], c.items[index+1:]...)
}

func (c *Cart) RemoveByID(id uint) {
	c.RemoveAt(c.indexOf(id))
}

// SetComment replaces the customer note of an entry. It reports whether the entry exists.
func (c *Cart) SetComment(id uint, comment string) bool {
	i := c.indexOf(id)
	if i < 0 {
		return false
	}
	c.items[i].Comment = comment
	return true
}

// AppendDetails adds a rendered extras selection to the entry at index.
func (c *Cart) AppendDetails(index int, text string) bool {
	if index < 0 || index >= len(c.items) || text == "" {
		return false
	}
	it := &c.items[index]
	if it.Details == "" {
		it.Details = text
	} else {
		it.Details = it.Details + " | " + text
	}
	return true
}

// ResetDetails drops every committed extras selection, ahead of a fresh checkout.
func (c *Cart) ResetDetails() {
	for i := range c.items {
		c.items[i].Details = ""
	}
}

func (c *Cart) Clear() {
	c.items = nil
}

func (c *Cart) Len() int {
	return len(c.items)
}

func (c *Cart) Empty() bool {
	return len(c.items) == 0
}

// Items returns a copy of the entries in cart order.
func (c *Cart) Items() []Item {
	out := make([]Item, len(c.items))
	for i, it := range c.items {
		out[i] = it.clone()
	}
	return out
}

func (c *Cart) Total() float64 {
	var total float64
	for _, it := range c.items {
		total += it.Subtotal()
	}
	return total
}

func clampQuantity(qty int) int {
	if qty > MaxQuantity {
		return MaxQuantity
	}
	return qty
}

func clampPieces(n int) int {
	switch {
	case n < 1:
		return 1
	case n > MaxPiecesPerUnit:
		return MaxPiecesPerUnit
	}
	return n
}

func (c *Cart) indexOf(id uint) int {
	for i, it := range c.items {
		if it.ID == id {
			return i
		}
	}
	return -1
}
