// Liarbox Liar Word Game
//
// Players are assigned to fixed-size rooms in join order. When a room
// fills, every member is privately sent a word from a randomly chosen
// category row; one member, the liar, receives a different word than
// the rest. Players chat, vote on who they think the liar is, and any
// player may reveal the answer to end the round.
//
// Features:
// - WebSocket per client: /liar/ws?name=<display name>
// - First-available room assignment, configurable room size
// - Word pairs loaded from a plain csv of (title,word,word) rows
// - Running vote tally re-broadcast to the room after every vote
// - Chat relay keeps working even when a round cannot start
// - In-browser QR button to share the game, backed by go-qrcode

package main

import (
	_ "embed"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type wsClient struct {
	conn *websocket.Conn
	send chan Envelope
	id   ClientID
}

// connTable maps client identities to their connections and implements
// Sender for the engine. Sends are non-blocking: a client whose buffer
// is full loses that message rather than stalling the fan-out; its
// connection is reaped by its own pumps.
type connTable struct {
	mu      sync.RWMutex
	clients map[ClientID]*wsClient
	cfg     *Config
}

func newConnTable(cfg *Config) *connTable {
	return &connTable{
		clients: make(map[ClientID]*wsClient),
		cfg:     cfg,
	}
}

func (t *connTable) Send(id ClientID, env Envelope) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	c, ok := t.clients[id]
	if !ok {
		return
	}

	select {
	case c.send <- env:
	default:
		logf(t.cfg, "GAMES: Dropped message to slow client %s", id)
	}
}

func (t *connTable) register(c *wsClient) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.clients[c.id] = c
}

func (t *connTable) unregister(id ClientID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if c, ok := t.clients[id]; ok {
		delete(t.clients, id)
		close(c.send)
	}
}

func serveLiarWS(cfg *Config, table *connTable, engine *Engine) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		userName := strings.TrimSpace(r.URL.Query().Get("name"))
		if userName == "" {
			http.Error(w, "missing name", http.StatusBadRequest)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}

		client := &wsClient{
			conn: conn,
			send: make(chan Envelope, 8),
			id:   uuid.New(),
		}

		table.register(client)
		engine.OnConnect(client.id, userName)

		go client.writePump()
		client.readPump(table, engine)
	}
}

func (c *wsClient) readPump(table *connTable, engine *Engine) {
	defer func() {
		table.unregister(c.id)
		engine.OnDisconnect(c.id)
		_ = c.conn.Close()
	}()

	for {
		var env Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			return
		}

		engine.OnReceive(c.id, env)
	}
}

func (c *wsClient) writePump() {
	defer c.conn.Close()

	for env := range c.send {
		if err := c.conn.WriteJSON(env); err != nil {
			return
		}
	}
}

// QR handler: generates a PNG QR code for the game URL using go-qrcode.
func qrHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	// We are at /.../qr; strip trailing "/qr" to get the game URL.
	path := strings.TrimSuffix(r.URL.Path, "/qr")

	url := scheme + "://" + r.Host + path

	const qrSize = 320 // mobile-friendly size
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// ---- Static file paths ----

//go:embed liar/index.html
var liarHTML []byte

//go:embed liar/app.css
var liarCSS []byte

//go:embed liar/app.js
var liarJS []byte

func getLiarHandler(cfg *Config) httprouter.Handle {
	return staticHandler(cfg, liarHTML, "text/html; charset=utf-8")
}

func staticHandler(cfg *Config, data []byte, contentType string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_, _ = w.Write(data)
	}
}

// registerLiarGame sets up routes so that:
//   - $path          → HTML client
//   - $path/ws       → WebSocket, one per player
//   - $path/qr       → PNG QR code for the game URL
func registerLiarGame(cfg *Config, path string, mux *httprouter.Router) {
	table := newConnTable(cfg)

	seed := cfg.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	engine := newEngine(cfg.roomSize, seed, fileWordSource(cfg.words), table)
	engine.logf = func(format string, args ...any) {
		logf(cfg, format, args...)
	}

	// HTML client
	mux.GET(cfg.prefix+path, getLiarHandler(cfg))

	// Shared assets
	mux.GET(cfg.prefix+"/assets/liar/app.css", staticHandler(cfg, liarCSS, "text/css; charset=utf-8"))
	mux.GET(cfg.prefix+"/assets/liar/app.js", staticHandler(cfg, liarJS, "text/javascript; charset=utf-8"))

	// Per-player websocket
	mux.GET(cfg.prefix+path+"/ws", serveLiarWS(cfg, table, engine))

	// QR code
	mux.GET(cfg.prefix+path+"/qr", qrHandler)
}
