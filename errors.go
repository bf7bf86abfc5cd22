/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
)

// Game-level failures. All of these are recovered locally: none may
// terminate a client pump or the process.
var (
	// ErrRoomFull is returned when admission targets a room already at
	// capacity. Unreachable under the first-available policy, but the
	// contract is kept for future room-selection policies.
	ErrRoomFull = errors.New("room is full")

	// ErrUnknownRoom is returned when an operation references a room
	// with no registry entry. Broadcasts to an unknown room are no-ops.
	ErrUnknownRoom = errors.New("unknown room")

	// ErrMalformedPayload is returned when a received payload matches
	// no known prefix. Logged and ignored, never a disconnect.
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrWordsUnavailable is returned when the word-pair source is
	// missing or empty at round-start time.
	ErrWordsUnavailable = errors.New("word list unavailable")
)

func logf(cfg *Config, format string, args ...any) {
	if !cfg.verbose {
		return
	}

	log.Printf("%s | "+format, append([]any{time.Now().Format(logDate)}, args...)...)
}

func newPage(title, body string) string {
	var htmlBody strings.Builder

	htmlBody.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
	htmlBody.WriteString(`<style>`)
	htmlBody.WriteString(`html,body,a{display:block;height:100%;width:100%;text-decoration:none;color:inherit;cursor:auto;}</style>`)
	htmlBody.WriteString(fmt.Sprintf("<title>%s</title></head>", title))
	htmlBody.WriteString(fmt.Sprintf("<body><a href=\"/\">%s</a></body></html>", body))

	return htmlBody.String()
}
