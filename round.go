package main

import (
	"math/rand"
)

type roundPhase int

const (
	phaseWordsAssigned roundPhase = iota
	phaseVoting
	phaseRevealed
)

type roundMember struct {
	id   ClientID
	name string
}

// Round is the ephemeral per-room game state: one category row, one
// liar, and the votes cast so far. The roster is snapshotted at word
// assignment so tallies keep working after a voter or accused leaves.
// Rounds are guarded by their room's mutex.
type Round struct {
	rowIndex  int
	row       WordRow
	liarIndex int
	roster    []roundMember
	phase     roundPhase

	votes     map[ClientID]ClientID
	castOrder []ClientID
}

// newRound draws the category row and the liar index, both uniform and
// independent, from rng.
func newRound(rows []WordRow, roster []roundMember, rng *rand.Rand) *Round {
	rowIndex := rng.Intn(len(rows))
	liarIndex := rng.Intn(len(roster))

	return &Round{
		rowIndex:  rowIndex,
		row:       rows[rowIndex],
		liarIndex: liarIndex,
		roster:    roster,
		phase:     phaseWordsAssigned,
		votes:     make(map[ClientID]ClientID),
	}
}

// assignmentFor builds the WORD: payload for the member at roster index
// i. The liar receives WordB, everyone else WordA; the majority word and
// the liar index ride along in every copy, matching the original
// protocol's disclosure.
func (r *Round) assignmentFor(i int) string {
	assigned := r.row.WordA
	if i == r.liarIndex {
		assigned = r.row.WordB
	}
	return wordPayload(r.rowIndex, r.row.Title, assigned, r.row.WordA, r.liarIndex)
}

// resolveName maps an accused display name to a roster identity.
func (r *Round) resolveName(name string) (ClientID, bool) {
	for _, m := range r.roster {
		if m.name == name {
			return m.id, true
		}
	}
	return ClientID{}, false
}

// castVote records voter accusing accused. A later vote from the same
// voter overwrites the earlier one and counts as freshly cast for
// tie-break purposes.
func (r *Round) castVote(voter, accused ClientID) {
	if _, ok := r.votes[voter]; ok {
		for i, id := range r.castOrder {
			if id == voter {
				r.castOrder = append(r.castOrder[:i], r.castOrder[i+1:]...)
				break
			}
		}
	}

	r.votes[voter] = accused
	r.castOrder = append(r.castOrder, voter)
	r.phase = phaseVoting
}

// leader returns the name of the current tally leader. Ties break in
// favor of whichever accused reached the winning count first, replaying
// the surviving votes in cast order: a later accusation never displaces
// an earlier one at the same count.
func (r *Round) leader() (string, bool) {
	if len(r.castOrder) == 0 {
		return "", false
	}

	counts := make(map[ClientID]int, len(r.votes))
	var leaderID ClientID
	leaderCount := 0

	for _, voter := range r.castOrder {
		accused := r.votes[voter]
		counts[accused]++
		if counts[accused] > leaderCount {
			leaderID = accused
			leaderCount = counts[accused]
		}
	}

	for _, m := range r.roster {
		if m.id == leaderID {
			return m.name, true
		}
	}
	return "", false
}
