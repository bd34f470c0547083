package customer

import (
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
)

const (
	WalkInID     = "walk-in"
	WalkInName   = "Walk-in Customer"
	walkInPrefix = "walk-in-"
	walkInPhone  = "0000000000"
)

var (
	ErrNameRequired  = errors.New("name is required")
	ErrPhoneRequired = errors.New("phone is required")

	ErrDirectoryUnavailable = errors.New("customer directory unavailable")
)

// Reference is the customer attached to the current sale.
type Reference struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
}

// IsWalkIn reports whether r is an unregistered walk-in of either kind.
func (r Reference) IsWalkIn() bool {
	return r.ID == WalkInID || strings.HasPrefix(r.ID, walkInPrefix)
}

// IsAutoWalkIn reports whether r was attached automatically by the terminal.
func (r Reference) IsAutoWalkIn() bool { return r.ID == WalkInID }

// WalkIn is the reference the terminal attaches on its own.
func WalkIn() Reference {
	return Reference{ID: WalkInID, Name: WalkInName}
}

// NewWalkIn builds an operator-entered walk-in with a fresh id.
func NewWalkIn(node *snowflake.Node, name string) Reference {
	display := "Walk-In Customer"
	if name = strings.TrimSpace(name); name != "" {
		display = "Walk-In - " + name
	}
	return Reference{
		ID:    walkInPrefix + node.Generate().String(),
		Name:  display,
		Phone: walkInPhone,
	}
}

// NewCustomer is the payload for registering a customer.
type NewCustomer struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
}
