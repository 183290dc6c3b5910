// internal/engine/player.go
package engine

import "fmt"

// Player is what the engine knows about a connected participant. A live
// network session implements the behavioral hooks for real delivery; tests
// implement them in memory so matching logic runs without a transport.
type Player interface {
	// Name returns the display name, or "" before a successful login.
	Name() string
	// Rating returns the rating claimed at login.
	Rating() int
	// DisplayString renders the profile for replies and notifications.
	DisplayString() string

	// SetProfile binds the identity exactly once, on successful login.
	SetProfile(name, country string, rating int)

	// SendMessage schedules one line for asynchronous delivery to the peer.
	// It must not block the caller.
	SendMessage(msg string)
	// WaitForMatch arms the wait-expiry timer.
	WaitForMatch()
	// CancelWaiting disarms the wait-expiry timer if it has not fired.
	CancelWaiting()
	// ForceLogout marks the session to close once pending writes flush.
	ForceLogout()
}

// Profile holds the immutable-after-set identity fields. Sessions embed it to
// satisfy the data half of Player.
type Profile struct {
	name    string
	country string
	rating  int
}

func (p *Profile) SetProfile(name, country string, rating int) {
	p.name = name
	p.country = country
	p.rating = rating
}

func (p *Profile) Name() string { return p.name }

func (p *Profile) Rating() int { return p.rating }

func (p *Profile) DisplayString() string {
	return fmt.Sprintf("name: %s, country: %s, rating: %d", p.name, p.country, p.rating)
}
