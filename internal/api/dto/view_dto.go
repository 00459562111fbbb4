package dto

import (
	"github.com/ecoai-civic/ecoai-client/internal/presence"
)

// Presence mirrors presence.Presence on the wire.
type Presence = presence.Presence

// Nav is the navigation bar model.
type Nav struct {
	Presence Presence            `json:"presence"`
	Menu     []presence.MenuItem `json:"menu"`
}

// View is the model of one rendered page.
type View struct {
	View   string            `json:"view"`
	Params map[string]string `json:"params,omitempty"`
	Nav    Nav               `json:"nav"`
	Data   any               `json:"data,omitempty"`
}

// NewNav builds the navigation bar model for p.
func NewNav(p Presence) Nav {
	return Nav{Presence: p, Menu: presence.Menu(p)}
}
