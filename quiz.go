/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Seednode/quizbox/games/quiz"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

// Messages coming from websocket clients
type quizClientMessage struct {
	Type           string  `json:"type"`           // "create_game", "join_game" or "submit_answer"
	GameID         string  `json:"gameId"`         // target session
	PlayerName     string  `json:"playerName"`     // display name
	BoardSize      any     `json:"boardSize"`      // number or string; non-numeric falls back to the default
	NumPlayers     int     `json:"numPlayers"`     // seats in the game
	NumTurns       int     `json:"numTurns"`       // answers per player
	PlayerIndex    int     `json:"playerIndex"`    // seat of the answering player
	SelectedSquare int     `json:"selectedSquare"` // board cell index
	PlayerAnswer   any     `json:"playerAnswer"`   // number or string
	Score          int     `json:"score"`          // points awarded by the client
	TimeToAnswer   float64 `json:"timeToAnswer"`   // seconds spent answering
}

// Sent to a single client when an operation it requested fails
type quizErrorMessage struct {
	Type  string `json:"type"` // "game_error"
	Error string `json:"error"`
}

// Sent to the creating client once its game exists
type gameCreatedMessage struct {
	Type string        `json:"type"` // "game_created"
	Game quiz.Snapshot `json:"game"`
}

// Sent to the joining client once it is seated
type joinSuccessMessage struct {
	Type   string      `json:"type"` // "join_success"
	GameID string      `json:"gameId"`
	Player quiz.Player `json:"player"`
}

type quizClient struct {
	conn     *websocket.Conn
	send     chan any
	playerID string
}

// quizHub fans engine events out to the websocket clients of each
// session. Game state lives in the engine; the hub only tracks who is
// listening where.
type quizHub struct {
	mu      sync.Mutex
	engine  *quiz.Engine
	clients map[*quizClient]bool
	rooms   map[string]map[*quizClient]bool
}

func newQuizHub(engine *quiz.Engine) *quizHub {
	return &quizHub{
		engine:  engine,
		clients: make(map[*quizClient]bool),
		rooms:   make(map[string]map[*quizClient]bool),
	}
}

func (h *quizHub) add(c *quizClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[c] = true
}

func (h *quizHub) drop(c *quizClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.dropLocked(c)
}

func (h *quizHub) dropLocked(c *quizClient) {
	if _, ok := h.clients[c]; !ok {
		return
	}

	delete(h.clients, c)
	for _, room := range h.rooms {
		delete(room, c)
	}
	close(c.send)
}

func (h *quizHub) joinRoom(sessionID string, c *quizClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[sessionID]
	if !ok {
		room = make(map[*quizClient]bool)
		h.rooms[sessionID] = room
	}
	room[c] = true
}

// connected reports whether any client with this playerID is still
// attached, for the disconnect grace period.
func (h *quizHub) connected(playerID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		if c.playerID == playerID {
			return true
		}
	}

	return false
}

// broadcast delivers engine events to every member of the affected
// session. Delivery is best-effort: clients too slow to keep up are
// dropped rather than blocking the game.
func (h *quizHub) broadcast(events []quiz.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ev := range events {
		for c := range h.rooms[ev.SessionID] {
			select {
			case c.send <- ev:
			default:
				h.dropLocked(c)
			}
		}

		if ev.Type == quiz.EventGameEnded || ev.Type == quiz.EventGameCompleted {
			delete(h.rooms, ev.SessionID)
		}
	}
}

// scheduleRemoval waits for d, and if no client with this playerID has
// reconnected, removes that player from their game and broadcasts the
// fallout.
func (h *quizHub) scheduleRemoval(cfg *Config, playerID string, d time.Duration) {
	time.Sleep(d)

	if h.connected(playerID) {
		return
	}

	events := h.engine.Disconnect(playerID)
	if events == nil {
		return
	}

	logf(cfg, "GAMES: Removed disconnected player %s", playerID)

	h.broadcast(events)
}

// reaperLoop periodically ends sessions that have been idle longer than
// the configured timeout.
func (h *quizHub) reaperLoop(cfg *Config) {
	ticker := time.NewTicker(cfg.sessionTimeout / 2)
	for range ticker.C {
		events := h.engine.ReapIdle(cfg.sessionTimeout)
		if events == nil {
			continue
		}

		logf(cfg, "GAMES: Reaped %d idle quiz games", len(events))

		h.broadcast(events)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const playerCookieName = "quizbox_id"

func getOrSetPlayerID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(playerCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		log.Println("rand.Read error:", err)
		return ""
	}
	id := hex.EncodeToString(buf)

	http.SetCookie(w, &http.Cookie{
		Name:     playerCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

// toInt coerces the loosely-typed numeric fields clients send (JSON
// numbers or strings). Anything non-numeric comes back as zero, which
// the engine treats as "use the default" for board sizes.
func toInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}

// WebSocket handler: every client connects at $path/:gameid/ws and is
// subscribed to that game's broadcasts.
func serveQuizWS(cfg *Config, h *quizHub) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		gameID := ps.ByName("gameid")
		if gameID == "" {
			http.Error(w, "missing game id", http.StatusBadRequest)
			return
		}

		playerID := getOrSetPlayerID(w, r)
		if playerID == "" {
			http.Error(w, "unable to assign player id", http.StatusInternalServerError)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}

		client := &quizClient{
			conn:     conn,
			send:     make(chan any, 8),
			playerID: playerID,
		}

		h.add(client)
		h.joinRoom(gameID, client)

		go client.writePump()
		client.readPump(cfg, h)
	}
}

func (c *quizClient) readPump(cfg *Config, h *quizHub) {
	defer func() {
		h.drop(c)
		_ = c.conn.Close()

		if c.playerID != "" {
			go h.scheduleRemoval(cfg, c.playerID, cfg.playerTimeout)
		}
	}()

	for {
		var msg quizClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "create_game":
			snap, err := h.engine.Create(c.playerID, msg.PlayerName, toInt(msg.BoardSize), msg.NumPlayers, msg.NumTurns)
			if err != nil {
				c.reply(quizErrorMessage{Type: "game_error", Error: err.Error()})
				continue
			}

			logf(cfg, "GAMES: Player %q created quiz game %s", msg.PlayerName, snap.ID)

			h.joinRoom(snap.ID, c)
			c.reply(gameCreatedMessage{Type: "game_created", Game: snap})

		case "join_game":
			player, snap, events, err := h.engine.Join(msg.GameID, c.playerID, msg.PlayerName)
			if err != nil {
				c.reply(quizErrorMessage{Type: "game_error", Error: err.Error()})
				continue
			}

			logf(cfg, "GAMES: Player %q joined quiz game %s", msg.PlayerName, snap.ID)

			h.joinRoom(snap.ID, c)
			c.reply(joinSuccessMessage{Type: "join_success", GameID: snap.ID, Player: player})
			h.broadcast(events)

		case "submit_answer":
			result, events, err := h.engine.Submit(msg.GameID, msg.PlayerIndex, msg.SelectedSquare, toInt(msg.PlayerAnswer), msg.TimeToAnswer, msg.Score)
			if err != nil {
				c.reply(quizErrorMessage{Type: "game_error", Error: err.Error()})
				continue
			}

			if result.Completed {
				logf(cfg, "GAMES: Quiz game %s completed, won by %q", msg.GameID, result.Winner)
			}

			h.broadcast(events)

		default:
			// ignore unknown types
		}
	}
}

// reply queues a message for this client only, dropping the client if
// its send buffer is full.
func (c *quizClient) reply(msg any) {
	select {
	case c.send <- msg:
	default:
	}
}

func (c *quizClient) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// ---- HTTP API ----

type quizCreateRequest struct {
	PlayerName string `json:"playerName"`
	BoardSize  any    `json:"boardSize"`
	NumPlayers int    `json:"numPlayers"`
	NumTurns   int    `json:"numTurns"`
}

type quizJoinRequest struct {
	PlayerName string `json:"playerName"`
}

type quizScoreRequest struct {
	Score        int     `json:"score"`
	PlayerAnswer any     `json:"playerAnswer"`
	TimeToAnswer float64 `json:"timeToAnswer"`
}

func serveNewQuizGame(cfg *Config, h *quizHub) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var req quizCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			serveJSON(cfg, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}

		playerID := getOrSetPlayerID(w, r)

		snap, err := h.engine.Create(playerID, req.PlayerName, toInt(req.BoardSize), req.NumPlayers, req.NumTurns)
		if err != nil {
			serveJSONError(cfg, w, err)
			return
		}

		logf(cfg, "GAMES: Player %q created quiz game %s", req.PlayerName, snap.ID)

		serveJSON(cfg, w, http.StatusOK, map[string]any{
			"success": true,
			"message": "Game created successfully",
			"gameDetails": map[string]any{
				"playerName": req.PlayerName,
				"boardSize":  snap.BoardSize,
				"numPlayers": snap.Capacity,
				"numTurns":   snap.TurnLimit,
				"status":     snap.Phase,
				"gameId":     snap.ID,
			},
		})
	}
}

func serveJoinQuizGame(cfg *Config, h *quizHub) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		var req quizJoinRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			serveJSON(cfg, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}

		playerID := getOrSetPlayerID(w, r)

		_, snap, events, err := h.engine.Join(ps.ByName("gameid"), playerID, req.PlayerName)
		if err != nil {
			serveJSONError(cfg, w, err)
			return
		}

		logf(cfg, "GAMES: Player %q joined quiz game %s", req.PlayerName, snap.ID)

		h.broadcast(events)

		names := make([]string, 0, len(snap.Players))
		for _, p := range snap.Players {
			names = append(names, p.Name)
		}

		serveJSON(cfg, w, http.StatusOK, map[string]any{
			"playerName":    req.PlayerName,
			"numPlayers":    snap.Capacity,
			"playersJoined": snap.Joined,
			"players":       names,
			"status":        snap.Phase,
			"gameId":        snap.ID,
			"boardSize":     snap.BoardSize,
			"numTurns":      snap.TurnLimit,
		})
	}
}

func serveQuizState(cfg *Config, h *quizHub) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		result, err := h.engine.State(ps.ByName("gameid"))
		if err != nil {
			serveJSONError(cfg, w, err)
			return
		}

		if result.Completed {
			serveJSON(cfg, w, http.StatusOK, map[string]any{
				"winner":         result.Winner,
				"playersRanking": result.Ranking,
			})
			return
		}

		serveJSON(cfg, w, http.StatusOK, result.Snapshot)
	}
}

func serveQuizScore(cfg *Config, h *quizHub) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		playerIndex, err := strconv.Atoi(ps.ByName("playerindex"))
		if err != nil {
			serveJSONError(cfg, w, quiz.ErrInvalidPlayerIndex)
			return
		}

		cellIndex, err := strconv.Atoi(ps.ByName("square"))
		if err != nil {
			serveJSONError(cfg, w, quiz.ErrInvalidCell)
			return
		}

		var req quizScoreRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			serveJSON(cfg, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}

		gameID := ps.ByName("gameid")

		result, events, err := h.engine.Submit(gameID, playerIndex, cellIndex, toInt(req.PlayerAnswer), req.TimeToAnswer, req.Score)
		if err != nil {
			serveJSONError(cfg, w, err)
			return
		}

		h.broadcast(events)

		if result.Completed {
			logf(cfg, "GAMES: Quiz game %s completed, won by %q", gameID, result.Winner)

			serveJSON(cfg, w, http.StatusOK, map[string]any{
				"winner":         result.Winner,
				"playersRanking": result.Ranking,
			})
			return
		}

		serveJSON(cfg, w, http.StatusOK, result.Snapshot)
	}
}

// QR handler: generates a PNG QR code for the current game URL using go-qrcode.
func qrHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	gameID := ps.ByName("gameid")
	if gameID == "" {
		http.Error(w, "missing game id", http.StatusBadRequest)
		return
	}

	// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	// We are at /.../:gameid/qr; strip trailing "/qr" to get the game URL.
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

func quizIndexHandler(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)

		_ = getOrSetPlayerID(w, r)

		_, _ = w.Write([]byte(quizHTML))
	}
}

// registerQuizGame sets up routes so that:
//   - $path/:gameid              → HTML client
//   - $path/:gameid/ws           → WebSocket for that game
//   - $path/:gameid/qr           → PNG QR code for that game URL
//   - /api/quiz/new-game         → create a game
//   - /api/quiz/join-game/:gameid → join a game
//   - /api/quiz/game/:gameid     → read game state
//   - /api/quiz/game/:gameid/score/:playerindex/:square → submit an answer
func registerQuizGame(cfg *Config, path string, mux *httprouter.Router) {
	engine := quiz.NewEngine(quiz.NewMemoryStore(), cfg.strictTurns)
	hub := newQuizHub(engine)

	if cfg.sessionTimeout > 0 {
		go hub.reaperLoop(cfg)
	}

	mux.GET(cfg.prefix+path, quizIndexHandler(cfg))
	mux.GET(cfg.prefix+path+"/:gameid", quizIndexHandler(cfg))
	mux.GET(cfg.prefix+path+"/:gameid/ws", serveQuizWS(cfg, hub))
	mux.GET(cfg.prefix+path+"/:gameid/qr", qrHandler)

	mux.POST(cfg.prefix+"/api/quiz/new-game", serveNewQuizGame(cfg, hub))
	mux.POST(cfg.prefix+"/api/quiz/join-game/:gameid", serveJoinQuizGame(cfg, hub))
	mux.GET(cfg.prefix+"/api/quiz/game/:gameid", serveQuizState(cfg, hub))
	mux.POST(cfg.prefix+"/api/quiz/game/:gameid/score/:playerindex/:square", serveQuizScore(cfg, hub))
}

// Simple HTML client for quick testing
const quizHTML = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Quizbox</title>
<style>
  body { font-family: system-ui, -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif; margin: 2rem; }
  h1 { margin-bottom: 0.5rem; }
  #status { margin-bottom: 1rem; font-size: 0.9rem; }
  #board { display: grid; grid-template-columns: repeat(10, 2.5rem); gap: 0.25rem; margin-top: 1rem; }
  #board button { height: 2.5rem; }
  #board button:disabled { background: #ddd; }
  #players { margin-top: 1rem; padding: 0; list-style: none; }
  #players li { padding: 0.25rem 0; border-bottom: 1px solid #ddd; }
</style>
</head>
<body>
<h1>Quizbox</h1>
<div id="status">Connecting…</div>
<div id="board"></div>
<ul id="players"></ul>

<script>
(function() {
  const statusEl = document.getElementById('status');
  const boardEl = document.getElementById('board');
  const playersEl = document.getElementById('players');

  const parts = location.pathname.replace(/\/$/, '').split('/');
  let gameId = parts[parts.length - 1];
  if (gameId === 'quiz') {
    gameId = 'new';
  }

  let playerName = '';
  let seat = -1;
  let game = null;

  const proto = (location.protocol === 'https:') ? 'wss://' : 'ws://';
  const base = location.pathname.replace(/\/$/, '').replace(/\/[^/]*$/, '');
  const ws = new WebSocket(proto + location.host + (gameId === 'new' ? base + '/quiz' : base) + '/' + gameId + '/ws');

  function render() {
    if (!game) {
      return;
    }

    boardEl.innerHTML = '';
    game.board.forEach(function(cell, i) {
      const btn = document.createElement('button');
      btn.textContent = i + 1;
      btn.disabled = cell.alreadyPlayed || game.status !== 'active';
      btn.onclick = function() { answer(i, cell); };
      boardEl.appendChild(btn);
    });

    playersEl.innerHTML = '';
    game.players.forEach(function(p) {
      const li = document.createElement('li');
      li.textContent = p.name + ' — ' + p.score + (p.nextTurn ? ' ←' : '');
      playersEl.appendChild(li);
    });
  }

  function answer(i, cell) {
    const started = Date.now();
    const op = { '*': '×', '/': '÷' }[cell.operator] || cell.operator;
    const given = prompt(cell.operand1 + ' ' + op + ' ' + cell.operand2 + ' = ?') || '';
    const correct = parseInt(given, 10) === cell.answer;

    ws.send(JSON.stringify({
      type: 'submit_answer',
      gameId: gameId,
      playerIndex: seat,
      selectedSquare: i,
      playerAnswer: given,
      score: correct ? 10 : 0,
      timeToAnswer: (Date.now() - started) / 1000
    }));
  }

  ws.onopen = function() {
    statusEl.textContent = 'Connected.';
    playerName = prompt('Enter your name:') || '';
    if (!playerName) {
      return;
    }

    if (gameId === 'new') {
      ws.send(JSON.stringify({
        type: 'create_game',
        playerName: playerName,
        boardSize: prompt('Board size (50-200):') || '',
        numPlayers: parseInt(prompt('Number of players:') || '2', 10),
        numTurns: parseInt(prompt('Turns per player (5-20):') || '5', 10)
      }));
    } else {
      ws.send(JSON.stringify({
        type: 'join_game',
        gameId: gameId,
        playerName: playerName
      }));
    }
  };

  ws.onmessage = function(event) {
    try {
      const msg = JSON.parse(event.data);

      switch (msg.type) {
      case 'game_created':
        gameId = msg.game.gameId;
        game = msg.game;
        seat = 0;
        statusEl.textContent = 'Waiting for players. Share this link: ' + location.origin + base + (base.endsWith('/quiz') ? '' : '/quiz') + '/' + gameId;
        render();
        break;

      case 'join_success':
        gameId = msg.gameId;
        statusEl.textContent = 'Joined. Waiting for the game to start.';
        break;

      case 'game_started':
        statusEl.textContent = 'Game on.';
        break;

      case 'game_state_changed':
      case 'score_changed':
        game = msg.payload;
        if (seat < 0) {
          seat = game.players.findIndex(function(p) { return p.name === playerName; });
        }
        render();
        break;

      case 'game_completed':
        statusEl.textContent = 'Winner: ' + msg.payload.winner;
        boardEl.innerHTML = '';
        break;

      case 'game_ended':
        statusEl.textContent = 'Game ended.';
        break;

      case 'game_error':
        statusEl.textContent = msg.error;
        break;
      }
    } catch (e) {
      console.error('bad message', e);
    }
  };

  ws.onclose = function() {
    statusEl.textContent = 'Disconnected.';
  };

  ws.onerror = function() {
    statusEl.textContent = 'Error with WebSocket.';
  };
})();
</script>
</body>
</html>
`
