// internal/engine/engine.go
package engine

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	minRating     = 100
	maxRating     = 3000
	ratingWindow  = 100
	commandDelim  = ","
	loginUsage    = "login,name,country,rating"
	listAllUsage  = "list_all"
	matchUsage    = "match"
	logoutUsage   = "logout"
	usagePrefix   = "Invalid parameters. You should use "
	msgNotLogged  = "You must first log in into the system. Please reconnect again."
	msgInvalidCmd = "Invalid command."
)

// Engine is the authoritative registry of online players, rating indexes,
// wait list and active pairings. One instance is shared by every session;
// all mutations run under the single write lock so mutating operations are
// totally ordered. No Engine method performs I/O: handlers compute a reply
// string and schedule message delivery through the Player hooks.
type Engine struct {
	mu  sync.RWMutex
	log *logrus.Logger

	waitTimeout time.Duration

	online  map[string]Player
	rates   *ratingIndex // every online player
	waiting *ratingIndex // players waiting for a match, timer armed
	singles *ratingIndex // online, unpaired, not waiting
	matches map[string]string

	commands map[string]func(Player, []string) string
}

// New constructs an engine. waitTimeout is only echoed in the no-match reply;
// the timer itself belongs to the session.
func New(log *logrus.Logger, waitTimeout time.Duration) *Engine {
	e := &Engine{
		log:         log,
		waitTimeout: waitTimeout,
		online:      make(map[string]Player),
		rates:       newRatingIndex(),
		waiting:     newRatingIndex(),
		singles:     newRatingIndex(),
		matches:     make(map[string]string),
	}
	e.commands = map[string]func(Player, []string) string{
		"login":    e.login,
		"list_all": e.listAll,
		"match":    e.match,
		"logout":   e.logout,
	}
	return e
}

// IsOnline reports whether name is currently authenticated and connected.
func (e *Engine) IsOnline(name string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.online[name]
	return ok
}

// HasMatch reports whether name currently has an active pairing.
func (e *Engine) HasMatch(name string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.matches[name]
	return ok
}

// Dispatch is the entry point for one framed command line. It tokenizes the
// line, enforces the login gate, runs the matching handler and delivers the
// reply to the session. Unknown commands and commands from unauthenticated
// sessions force the session to its terminal state per the protocol rules.
func (e *Engine) Dispatch(p Player, line string) {
	tokens := strings.Split(line, commandDelim)
	handler, known := e.commands[tokens[0]]
	if !known {
		msg := msgInvalidCmd
		if !e.IsOnline(p.Name()) {
			msg += " Please reconnect and first login using: " + loginUsage
			p.ForceLogout()
		}
		p.SendMessage(msg)
		return
	}
	if tokens[0] != "login" && !e.IsOnline(p.Name()) {
		p.ForceLogout()
		p.SendMessage(msgNotLogged)
		return
	}
	p.SendMessage(handler(p, tokens[1:]))
}

func (e *Engine) login(p Player, args []string) string {
	if len(args) != 3 {
		return usagePrefix + loginUsage
	}
	name, country := args[0], args[1]
	rating, err := strconv.Atoi(args[2])
	if err != nil {
		return usagePrefix + loginUsage
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// Rejects both a name that is already online and a second login on a
	// session that already holds a profile.
	if _, taken := e.online[name]; taken {
		return "You've already logged in into the system!"
	}
	if _, bound := e.online[p.Name()]; bound {
		return "You've already logged in into the system!"
	}

	p.SetProfile(name, country, rating)
	e.online[name] = p
	e.rates.add(rating, name)
	e.singles.add(rating, name)
	e.log.WithFields(logrus.Fields{"player": name, "rating": rating}).Info("player logged in")

	// A fresh login never auto-enters the wait queue, but it may rescue
	// someone who is already waiting.
	if opponent, ok := e.findMatch(p, true); ok {
		e.recordMatch(p, opponent)
		opp := e.online[opponent]
		opp.SendMessage("You've paired with " + p.DisplayString())
		return "You've successfully logged in: " + p.DisplayString() +
			"\nYou've paired with " + opp.DisplayString()
	}
	return "You've successfully logged in: " + p.DisplayString()
}

func (e *Engine) listAll(_ Player, args []string) string {
	if len(args) != 0 {
		return usagePrefix + listAllUsage
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	var sb strings.Builder
	e.rates.descending(func(rating int, name string) {
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(name)
		sb.WriteString(", ")
		sb.WriteString(strconv.Itoa(rating))
	})
	return sb.String()
}

func (e *Engine) match(p Player, args []string) string {
	if len(args) != 0 {
		return usagePrefix + matchUsage
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if opponent, paired := e.matches[p.Name()]; paired {
		return "You cannot have more than 1 pair! Your current pair: " +
			e.online[opponent].DisplayString()
	}

	opponent, ok := e.findMatch(p, false)
	if !ok {
		e.waiting.add(p.Rating(), p.Name())
		e.singles.remove(p.Rating(), p.Name())
		p.WaitForMatch()
		return "At the moment there is no suitable match. We'll let you know when one is available in " +
			strconv.Itoa(int(e.waitTimeout.Seconds())) + " seconds"
	}

	e.recordMatch(p, opponent)
	opp := e.online[opponent]
	opp.SendMessage("You've paired with " + p.DisplayString())
	return "You've paired with " + opp.DisplayString()
}

func (e *Engine) logout(p Player, args []string) string {
	if len(args) != 0 {
		return usagePrefix + logoutUsage
	}

	e.mu.Lock()
	e.remove(p)
	e.mu.Unlock()

	p.ForceLogout()
	return "You've successfully logged out from the system: " + p.DisplayString()
}

// ExpireWait promotes p back to the singles pool after its wait timer lapsed
// without producing a pairing. It reports whether the one-shot timeout notice
// should be sent; false means the player meanwhile went offline, got paired,
// or left the wait pool, and the notice must be suppressed.
func (e *Engine) ExpireWait(p Player) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	name := p.Name()
	if _, ok := e.online[name]; !ok {
		return false
	}
	if _, paired := e.matches[name]; paired {
		return false
	}
	if !e.waiting.contains(p.Rating(), name) {
		return false
	}
	e.waiting.remove(p.Rating(), name)
	e.singles.add(p.Rating(), name)
	return true
}

// Disconnect tears down a session whose transport failed, dissolving any held
// pairing exactly as an explicit logout would. Safe to call for sessions that
// never logged in.
func (e *Engine) Disconnect(p Player) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.online[p.Name()]; !ok {
		return
	}
	e.remove(p)
}

// remove purges p from every registry and index, dissolving an active pairing
// first. Caller holds the write lock.
func (e *Engine) remove(p Player) {
	name, rating := p.Name(), p.Rating()

	if opponent, paired := e.matches[name]; paired {
		opp := e.online[opponent]
		opp.SendMessage("Your opponent logged out from the system: " + p.DisplayString())
		delete(e.matches, name)
		delete(e.matches, opponent)
		e.singles.add(opp.Rating(), opponent)
	}

	p.CancelWaiting()
	e.rates.remove(rating, name)
	e.waiting.remove(rating, name)
	e.singles.remove(rating, name)
	delete(e.online, name)
	e.log.WithField("player", name).Info("player logged out")
}

// findMatch runs the candidate search for p's rating window. The wait index
// is always scanned first; the singles index only when waitOnly is false.
// A waiting candidate's expiry timer is cancelled here, before the pairing is
// recorded, so the timer can never fire against a consumed wait. Caller holds
// the write lock.
func (e *Engine) findMatch(p Player, waitOnly bool) (string, bool) {
	rating := p.Rating()
	lo := rating - ratingWindow
	if lo < minRating {
		lo = minRating
	}
	hi := rating + ratingWindow
	if hi > maxRating {
		hi = maxRating
	}

	if name, ok := e.waiting.scan(hi, lo, p.Name()); ok {
		e.online[name].CancelWaiting()
		return name, true
	}
	if !waitOnly {
		if name, ok := e.singles.scan(hi, lo, p.Name()); ok {
			return name, true
		}
	}
	return "", false
}

// recordMatch moves both participants out of the wait/singles pools and files
// the symmetric pairing. Caller holds the write lock.
func (e *Engine) recordMatch(p Player, opponent string) {
	opp := e.online[opponent]

	e.waiting.remove(p.Rating(), p.Name())
	e.singles.remove(p.Rating(), p.Name())
	e.waiting.remove(opp.Rating(), opponent)
	e.singles.remove(opp.Rating(), opponent)

	e.matches[p.Name()] = opponent
	e.matches[opponent] = p.Name()
	e.log.WithFields(logrus.Fields{"player": p.Name(), "opponent": opponent}).Info("players paired")
}
