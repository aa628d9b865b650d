package domain

import (
	"time"

	"golang.org/x/net/html"
)

// ContentUnit is one discrete piece of observable content: an email conversation,
// a chat message or a page region.
type ContentUnit struct {
	// ID is stable across re-renders of the same logical unit.
	ID       string
	Platform string
	Text     string
	Sender   string
	Context  string
	URL      string
	// Container is the host node the unit was extracted from.
	Container *html.Node
}

// Status is the snapshot exposed to the control surface.
type Status struct {
	ProtectionEnabled    bool      `json:"protectionEnabled"`
	ActivePlatform       string    `json:"activePlatform"`
	ScannedUnits         int       `json:"scannedUnits"`
	ActiveAlerts         int       `json:"activeAlerts"`
	InFlight             int       `json:"inFlight"`
	ClassifierConfigured bool      `json:"classifierConfigured"`
	PageURL              string    `json:"pageUrl"`
	CheckedAt            time.Time `json:"checkedAt"`
}
