package main

import (
	"math/rand"
	"strings"
	"sync"
)

// Sender delivers one composed envelope to one client. Delivery is
// fire-and-forget: implementations must not block, and a failure to
// reach one client must not affect any other. The engine never calls a
// room-wide primitive; every broadcast is one Send per member.
type Sender interface {
	Send(id ClientID, env Envelope)
}

// Engine is the room/session protocol core. A transport feeds it
// connect, disconnect, and receive events; it updates room and round
// state and emits envelopes through the Sender. It performs no network
// I/O of its own.
type Engine struct {
	registry *Registry
	capacity int
	words    WordSource
	sender   Sender
	logf     func(format string, args ...any)

	rngMu sync.Mutex
	rng   *rand.Rand
}

func newEngine(capacity int, seed int64, words WordSource, sender Sender) *Engine {
	return &Engine{
		registry: newRegistry(capacity),
		capacity: capacity,
		words:    words,
		sender:   sender,
		logf:     func(string, ...any) {},
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// OnConnect admits the client to the first available room, announces
// the join and the updated user list to the room, and starts a round if
// the room just filled.
func (e *Engine) OnConnect(id ClientID, userName string) {
	rm, size, err := e.registry.Add(id, userName)
	if err != nil {
		// Unreachable under first-available admission, but an
		// admission failure must never materialize a session.
		e.logf("GAMES: Admission failed for %q: %v", userName, err)
		return
	}

	e.logf("GAMES: %q joined room %d (%d/%d)", userName, rm.id, size, e.capacity)

	rm.mu.Lock()
	defer rm.mu.Unlock()

	e.sendToMembersLocked(rm, Envelope{
		RoomID:   rm.id,
		UserName: userName,
		State:    StateConnect,
	})
	e.sendToMembersLocked(rm, Envelope{
		RoomID:  rm.id,
		State:   StateMessage,
		Message: userListPayload(rm.namesLocked()),
	})

	if rm.sizeLocked() == e.capacity && rm.round == nil {
		e.startRoundLocked(rm)
	}
}

// OnDisconnect removes the client from its room, silently abandoning
// any round in progress, and announces the departure to the remaining
// members. The session is terminal; nothing is reused.
func (e *Engine) OnDisconnect(id ClientID) {
	sess, remaining, ok := e.registry.Remove(id)
	if !ok {
		return
	}

	e.logf("GAMES: %q left room %d (%d remaining)", sess.UserName, sess.RoomID, len(remaining))

	e.broadcastTo(remaining, Envelope{
		RoomID:   sess.RoomID,
		UserName: sess.UserName,
		State:    StateDisconnect,
	})
}

// OnReceive dispatches a client message by payload prefix: votes and
// answers drive the round, MESSAGE: lines are relayed as chat, and
// anything else is logged and dropped. No payload ever causes a
// disconnect.
func (e *Engine) OnReceive(id ClientID, env Envelope) {
	rm, sess, ok := e.registry.lookup(id)
	if !ok {
		e.logf("GAMES: Dropped message from unknown client %s", id)
		return
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	sess.State = StateMessage

	payload := env.Message
	switch {
	case strings.HasPrefix(payload, prefixVoted):
		e.handleVoteLocked(rm, sess, id, strings.TrimPrefix(payload, prefixVoted))

	case strings.HasPrefix(payload, prefixAnswer):
		e.handleAnswerLocked(rm, sess, strings.TrimPrefix(payload, prefixAnswer))

	case strings.HasPrefix(payload, prefixMessage):
		// Clients send MESSAGE:<text>, or the canonical
		// MESSAGE:<name>:<text> form with their own name. Either way
		// the relayed line carries the session's name, not a
		// client-supplied one.
		text := strings.TrimPrefix(payload, prefixMessage)
		text = strings.TrimPrefix(text, sess.UserName+":")
		e.sendToMembersLocked(rm, Envelope{
			RoomID:   rm.id,
			UserName: sess.UserName,
			State:    StateMessage,
			Message:  chatPayload(sess.UserName, text),
		})

	default:
		e.logf("GAMES: %v from %q in room %d: %q", ErrMalformedPayload, sess.UserName, rm.id, payload)
	}
}

// startRoundLocked begins a round for a just-filled room: one category
// row and one liar index, both uniform draws. When the word source is
// missing or empty the room is told so and keeps working for chat.
func (e *Engine) startRoundLocked(rm *room) {
	rows, err := e.words()
	if err != nil || len(rows) == 0 {
		if err == nil {
			err = ErrWordsUnavailable
		}
		e.logf("GAMES: Round not started in room %d: %v", rm.id, err)
		e.sendToMembersLocked(rm, Envelope{
			RoomID:  rm.id,
			State:   StateMessage,
			Message: chatPayload("server", "round could not start: "+ErrWordsUnavailable.Error()),
		})
		return
	}

	roster := make([]roundMember, 0, len(rm.members))
	for _, m := range rm.members {
		roster = append(roster, roundMember{id: m.id, name: m.session.UserName})
	}

	e.rngMu.Lock()
	rm.round = newRound(rows, roster, e.rng)
	e.rngMu.Unlock()

	e.logf("GAMES: Round started in room %d (row %d, liar %q)",
		rm.id, rm.round.rowIndex, roster[rm.round.liarIndex].name)

	for i, m := range roster {
		e.sender.Send(m.id, Envelope{
			RoomID:  rm.id,
			State:   StateMessage,
			Message: rm.round.assignmentFor(i),
		})
	}
}

func (e *Engine) handleVoteLocked(rm *room, sess *Session, voter ClientID, accusedName string) {
	if rm.round == nil {
		e.logf("GAMES: Vote from %q ignored, no round in room %d", sess.UserName, rm.id)
		return
	}

	accused, ok := rm.round.resolveName(accusedName)
	if !ok {
		e.logf("GAMES: %v: vote for unknown player %q in room %d", ErrMalformedPayload, accusedName, rm.id)
		return
	}

	rm.round.castVote(voter, accused)

	leaderName, ok := rm.round.leader()
	if !ok {
		return
	}

	e.logf("GAMES: %q voted for %q in room %d, leader %q", sess.UserName, accusedName, rm.id, leaderName)

	e.sendToMembersLocked(rm, Envelope{
		RoomID:  rm.id,
		State:   StateMessage,
		Message: votedUserPayload(leaderName),
	})
}

func (e *Engine) handleAnswerLocked(rm *room, sess *Session, text string) {
	if rm.round == nil {
		e.logf("GAMES: Answer from %q ignored, no round in room %d", sess.UserName, rm.id)
		return
	}

	// Reveal is terminal: the round is discarded with the broadcast.
	rm.round = nil

	e.logf("GAMES: %q revealed %q in room %d", sess.UserName, text, rm.id)

	e.sendToMembersLocked(rm, Envelope{
		RoomID:  rm.id,
		State:   StateMessage,
		Message: answerWordPayload(text),
	})
}

// MembersOf exposes the registry's membership snapshot, mostly for
// observers and the home page.
func (e *Engine) MembersOf(roomID int) []RoomMember {
	return e.registry.MembersOf(roomID)
}

func (e *Engine) sendToMembersLocked(rm *room, env Envelope) {
	for _, m := range rm.members {
		e.sender.Send(m.id, env)
	}
}

func (e *Engine) broadcastTo(members []RoomMember, env Envelope) {
	for _, m := range members {
		e.sender.Send(m.ID, env)
	}
}
