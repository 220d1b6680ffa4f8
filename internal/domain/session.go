package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Mode tells whether a conversation is chatting freely or placing an order.
type Mode string

const (
	ModeFree  Mode = "free"
	ModeOrder Mode = "order"
)

// Step is the position inside the ordering flow.
type Step int

const (
	StepNone Step = iota
	StepName
	StepPickupTime
	StepItems
	StepConfirm
)

func (s Step) String() string {
	switch s {
	case StepName:
		return "name"
	case StepPickupTime:
		return "pickup_time"
	case StepItems:
		return "items"
	case StepConfirm:
		return "confirm"
	default:
		return "none"
	}
}

// CartLine accumulates the quantity of one product in one unit class.
type CartLine struct {
	Product  string          `json:"product"`
	Unit     Unit            `json:"unit"`
	Quantity decimal.Decimal `json:"quantity"`
}

// Cart is the ordered list of lines of an order in progress.
type Cart []CartLine

// Add accumulates item into the cart, merging lines with the same product
// and unit. Kilograms stay rounded to KilogramPrecision decimals.
func (c Cart) Add(item LineItem) Cart {
	for i, line := range c {
		if line.Product == item.Product && line.Unit == item.Quantity.Unit {
			sum := line.Quantity.Add(item.Quantity.Value)
			if line.Unit == UnitKilograms {
				sum = sum.Round(KilogramPrecision)
			}
			c[i].Quantity = sum
			return c
		}
	}
	return append(c, CartLine{
		Product:  item.Product,
		Unit:     item.Quantity.Unit,
		Quantity: item.Quantity.Value,
	})
}

// Remove drops every line of product and reports whether any was removed.
func (c Cart) Remove(product string) (Cart, bool) {
	out := c[:0]
	removed := false
	for _, line := range c {
		if line.Product == product {
			removed = true
			continue
		}
		out = append(out, line)
	}
	return out, removed
}

// Products returns the distinct product names in the cart.
func (c Cart) Products() []string {
	seen := make(map[string]bool, len(c))
	var out []string
	for _, line := range c {
		if !seen[line.Product] {
			seen[line.Product] = true
			out = append(out, line.Product)
		}
	}
	return out
}

// Session is the per-customer conversation state.
type Session struct {
	UserID       string    `json:"user_id"`
	Mode         Mode      `json:"mode"`
	Step         Step      `json:"step"`
	CustomerName string    `json:"customer_name,omitempty"`
	PickupAt     time.Time `json:"pickup_at,omitempty"`
	Cart         Cart      `json:"cart,omitempty"`
	MessageCount int       `json:"message_count"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewSession returns a fresh free-mode session for userID.
func NewSession(userID string) *Session {
	return &Session{UserID: userID, Mode: ModeFree, Step: StepNone}
}

// StartOrder resets the session to the first ordering step.
func (s *Session) StartOrder() {
	s.Mode = ModeOrder
	s.Step = StepName
	s.CustomerName = ""
	s.PickupAt = time.Time{}
	s.Cart = nil
}
