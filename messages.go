package main

import (
	"fmt"
	"strconv"
	"strings"
)

// ChatState tags an envelope with the session transition that produced it.
type ChatState string

const (
	StateConnect    ChatState = "connect"
	StateDisconnect ChatState = "disconnect"
	StateMessage    ChatState = "message"
)

// Envelope is the wire-level message exchanged with clients. Connect and
// Disconnect envelopes carry no payload; Message envelopes carry a
// prefix-tagged payload string.
type Envelope struct {
	RoomID   int       `json:"room_id"`
	UserName string    `json:"user_name,omitempty"`
	State    ChatState `json:"state"`
	Message  string    `json:"message,omitempty"`
}

// Payload prefixes. Dispatch is case-sensitive.
const (
	prefixUserList   = "USER_LIST:"
	prefixWord       = "WORD:"
	prefixMessage    = "MESSAGE:"
	prefixVoted      = "VOTED:"
	prefixVotedUser  = "VOTEDUSER:"
	prefixAnswer     = "ANSWER:"
	prefixAnswerWord = "ANSWERWORD:"
)

func userListPayload(names []string) string {
	return prefixUserList + strings.Join(names, ",")
}

func chatPayload(userName, text string) string {
	return prefixMessage + userName + ":" + text
}

func votedUserPayload(leaderName string) string {
	return prefixVotedUser + leaderName
}

func answerWordPayload(text string) string {
	return prefixAnswerWord + text
}

func wordPayload(rowIndex int, title, assignedWord, majorityWord string, liarIndex int) string {
	return fmt.Sprintf("%s%d,%s,%s,%s,%d", prefixWord, rowIndex, title, assignedWord, majorityWord, liarIndex)
}

// WordAssignment is the parsed form of a WORD: payload.
type WordAssignment struct {
	RowIndex     int
	Title        string
	AssignedWord string
	MajorityWord string
	LiarIndex    int
}

func parseWordPayload(payload string) (WordAssignment, error) {
	rest, ok := strings.CutPrefix(payload, prefixWord)
	if !ok {
		return WordAssignment{}, fmt.Errorf("%w: %q", ErrMalformedPayload, payload)
	}

	fields := strings.SplitN(rest, ",", 5)
	if len(fields) != 5 {
		return WordAssignment{}, fmt.Errorf("%w: %q", ErrMalformedPayload, payload)
	}

	rowIndex, err := strconv.Atoi(fields[0])
	if err != nil {
		return WordAssignment{}, fmt.Errorf("%w: %q", ErrMalformedPayload, payload)
	}
	liarIndex, err := strconv.Atoi(fields[4])
	if err != nil {
		return WordAssignment{}, fmt.Errorf("%w: %q", ErrMalformedPayload, payload)
	}

	return WordAssignment{
		RowIndex:     rowIndex,
		Title:        fields[1],
		AssignedWord: fields[2],
		MajorityWord: fields[3],
		LiarIndex:    liarIndex,
	}, nil
}

func parseUserListPayload(payload string) ([]string, error) {
	rest, ok := strings.CutPrefix(payload, prefixUserList)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMalformedPayload, payload)
	}
	if rest == "" {
		return nil, nil
	}
	return strings.Split(rest, ","), nil
}

// parseChatPayload splits an inbound MESSAGE: payload into its optional
// sender name and text. Clients may send either MESSAGE:<text> or
// MESSAGE:<name>:<text>; the relay rewrites the name from the session
// either way, so the name here is informational only.
func parseChatPayload(payload string) (name, text string, err error) {
	rest, ok := strings.CutPrefix(payload, prefixMessage)
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrMalformedPayload, payload)
	}

	if name, text, ok := strings.Cut(rest, ":"); ok {
		return name, text, nil
	}
	return "", rest, nil
}
