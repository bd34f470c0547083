package scanner

import (
	"time"

	"github.com/georgemunganga/printa-terminal/internal/modules/catalog"
)

// DefaultWindow is how long the buffer survives between two keystrokes.
// Scanners type far faster than people.
const DefaultWindow = 200 * time.Millisecond

const keyEnter = "Enter"

// Target is where keyboard focus was when a key arrived.
type Target string

const (
	TargetDocument  Target = "document"
	TargetSearch    Target = "search"
	TargetTextField Target = "text"
)

// KeyEvent is one key press as reported by the terminal front end.
type KeyEvent struct {
	Key    string `json:"key"`
	Ctrl   bool   `json:"ctrl,omitempty"`
	Alt    bool   `json:"alt,omitempty"`
	Meta   bool   `json:"meta,omitempty"`
	Target Target `json:"target,omitempty"`
}

// Action tells the front end what to do with the key it just forwarded.
type Action struct {
	Suppress   bool `json:"suppress"`    // do not deliver the key to the focused field
	BlurSearch bool `json:"blur_search"` // drop focus from the search field
}

// Resolver looks up a scanned code.
type Resolver interface {
	FindByCode(code string) (catalog.Item, bool)
}
