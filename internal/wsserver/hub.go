package wsserver

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"hotkeysched/internal/hotkeys"
)

// writeDeadline is the maximum time allowed for a single WebSocket write to
// complete. A client that stalls longer than this is considered dead.
const writeDeadline = 5 * time.Second

// readDeadline is the maximum time the server waits for any read activity
// (including pong responses) before considering the connection dead.
// 90 seconds allows for ~3 missed pings (pingInterval=30s) before timeout.
const readDeadline = 90 * time.Second

// pingInterval is the interval between server-initiated WebSocket pings.
const pingInterval = 30 * time.Second

// maxReadMessageSize limits the size of incoming control messages, which are
// typically well under 1 KiB.
const maxReadMessageSize = 32 * 1024

// logQueueSize bounds the number of log frames waiting for the writer.
// Frames beyond it are dropped.
const logQueueSize = 64

var wsUpgrader = websocket.Upgrader{
	CheckOrigin:     checkOrigin,
	ReadBufferSize:  1024,
	WriteBufferSize: 4 * 1024,
}

// checkOrigin accepts native clients, which send no Origin header, and pages
// served from a loopback host. Any other page in a local browser could
// otherwise read the hotkey and log streams and drive the debugger flag.
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return isLoopbackHost(u.Hostname())
}

func isLoopbackHost(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// HubOptions configures the WebSocket server.
type HubOptions struct {
	// Addr is the listen address. Use "127.0.0.1:0" for OS-assigned port.
	Addr string
}

// Hub manages a single WebSocket connection to the UI process. It streams
// hotkey notifications and mirrored log records as JSON text frames and
// receives subscription and debugger-state requests.
//
// Single-connection model: new connections replace existing ones so that a
// restarted UI takes over without waiting for the old socket to time out.
//
// Lock ordering (never acquire in reverse):
//
//	writeMu -> mu
//
// mu protects connection state and the subscription set.
// writeMu serializes gorilla/websocket WriteMessage calls (not concurrency-safe).
//
// Write failure policy: any write failure disconnects the client via
// clearIfCurrent+closeConn. The client must reconnect.
type Hub struct {
	opts HubOptions

	// mu protects conn, subscribedAll and subscribed.
	mu            sync.RWMutex
	conn          *websocket.Conn
	subscribedAll bool
	subscribed    map[hotkeys.Action]bool

	// writeMu serializes WriteMessage calls. Never hold mu when acquiring it.
	writeMu sync.Mutex

	// debuggerAttached is reported by the client and cleared on disconnect.
	debuggerAttached atomic.Bool

	// logs feeds the log writer goroutine. BroadcastLog never blocks on it
	// because it may be called from inside a slog handler that runs while
	// writeMu is held.
	logs    chan []byte
	done    chan struct{}
	writers sync.WaitGroup

	listener net.Listener
	server   *http.Server
	url      string // "ws://127.0.0.1:<port>/ws", set after Start

	// closeOnce ensures Stop is idempotent. A stopped Hub cannot be reused.
	closeOnce sync.Once
}

// NewHub creates a Hub with the given options.
// The hub is not started until Start is called.
func NewHub(opts HubOptions) *Hub {
	if opts.Addr == "" {
		opts.Addr = "127.0.0.1:0"
	}
	return &Hub{
		opts:       opts,
		subscribed: make(map[hotkeys.Action]bool),
		logs:       make(chan []byte, logQueueSize),
		done:       make(chan struct{}),
	}
}

// Start begins listening on the configured address and serves WebSocket
// connections. ctx becomes the server's BaseContext; the server itself must
// be stopped explicitly via Stop.
//
// Start must be called once, before any concurrent access.
func (h *Hub) Start(ctx context.Context) error {
	if h.server != nil {
		return fmt.Errorf("wsserver: already started")
	}

	host, _, err := net.SplitHostPort(h.opts.Addr)
	if err != nil {
		return fmt.Errorf("wsserver: listen address: %w", err)
	}
	if !isLoopbackHost(host) {
		return fmt.Errorf("wsserver: refusing to listen on non-loopback host %q", host)
	}

	ln, err := net.Listen("tcp", h.opts.Addr)
	if err != nil {
		return fmt.Errorf("wsserver: listen: %w", err)
	}
	h.listener = ln

	h.url = "ws://" + ln.Addr().String() + "/ws"

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.handleWS)

	h.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if serveErr := h.server.Serve(ln); serveErr != nil && serveErr != http.ErrServerClosed {
			slog.Error("[DEBUG-WS] server error", "error", serveErr)
		}
	}()
	h.writers.Go(h.logWriter)

	slog.Info("[DEBUG-WS] server started", "url", h.url)
	return nil
}

// Stop shuts down the HTTP server, closes any active connection and stops the
// log writer. Safe to call multiple times.
func (h *Hub) Stop() error {
	var stopErr error
	h.closeOnce.Do(func() {
		close(h.done)
		h.writers.Wait()

		h.mu.Lock()
		conn := h.conn
		h.conn = nil
		h.resetSubscriptionsLocked()
		h.mu.Unlock()
		h.debuggerAttached.Store(false)

		if conn != nil {
			if err := conn.Close(); err != nil {
				slog.Debug("[DEBUG-WS] connection close during stop", "error", err)
			}
		}

		if h.server != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := h.server.Shutdown(shutdownCtx); err != nil {
				stopErr = fmt.Errorf("wsserver: shutdown: %w", err)
			}
		}

		slog.Info("[DEBUG-WS] server stopped")
	})
	return stopErr
}

// URL returns the WebSocket URL clients connect to
// (e.g. "ws://127.0.0.1:54321/ws"), or "" before Start.
func (h *Hub) URL() string {
	return h.url
}

// HasActiveConnection reports whether a WebSocket client is currently connected.
func (h *Hub) HasActiveConnection() bool {
	h.mu.RLock()
	active := h.conn != nil
	h.mu.RUnlock()
	return active
}

// DebuggerAttached reports whether the connected client has declared an
// attached debugging session. It gates the debugging hotkey set.
func (h *Hub) DebuggerAttached() bool {
	return h.debuggerAttached.Load()
}

// resetSubscriptionsLocked clears the subscription set. Caller holds h.mu.
func (h *Hub) resetSubscriptionsLocked() {
	h.subscribedAll = false
	h.subscribed = make(map[hotkeys.Action]bool)
}

// clearIfCurrent clears the hub's connection, subscriptions and debugger
// state only if conn is still the current connection. Returns true if it was
// cleared. Caller must NOT hold h.mu.
func (h *Hub) clearIfCurrent(conn *websocket.Conn) bool {
	h.mu.Lock()
	isCurrent := h.conn == conn
	if isCurrent {
		h.conn = nil
		h.resetSubscriptionsLocked()
	}
	h.mu.Unlock()
	if isCurrent && h.debuggerAttached.Swap(false) {
		slog.Info("[DEBUG-WS] debugger detached by disconnect")
	}
	return isCurrent
}

// closeConn closes a WebSocket connection. Closing an already-closed
// connection returns an error with no other effect.
func (h *Hub) closeConn(conn *websocket.Conn, reason string) {
	if closeErr := conn.Close(); closeErr != nil {
		slog.Debug("[DEBUG-WS] connection close", "reason", reason, "error", closeErr)
	}
}

// setWriteDeadlineOrClose sets a write deadline on the connection. A
// connection whose deadline cannot be set is closed.
// Returns false if the deadline could not be set.
func (h *Hub) setWriteDeadlineOrClose(conn *websocket.Conn, d time.Duration) bool {
	if err := conn.SetWriteDeadline(time.Now().Add(d)); err != nil {
		slog.Warn("[DEBUG-WS] SetWriteDeadline failed, closing connection", "error", err)
		h.clearIfCurrent(conn)
		h.closeConn(conn, "SetWriteDeadline failure")
		return false
	}
	return true
}

// clearWriteDeadline resets the write deadline after a successful write.
// Failure is non-fatal: the next write sets a fresh deadline.
func (h *Hub) clearWriteDeadline(conn *websocket.Conn) {
	if err := conn.SetWriteDeadline(time.Time{}); err != nil {
		slog.Debug("[DEBUG-WS] clearWriteDeadline failed (non-fatal)", "error", err)
	}
}

// writeText writes one text frame under writeMu with a deadline. A failed
// write disconnects the client.
func (h *Hub) writeText(conn *websocket.Conn, payload []byte, reason string) error {
	h.writeMu.Lock()
	if !h.setWriteDeadlineOrClose(conn, writeDeadline) {
		h.writeMu.Unlock()
		return fmt.Errorf("wsserver: %s: write deadline", reason)
	}
	err := conn.WriteMessage(websocket.TextMessage, payload)
	h.clearWriteDeadline(conn)
	h.writeMu.Unlock()

	if err != nil {
		h.clearIfCurrent(conn)
		h.closeConn(conn, "write error in "+reason)
		return fmt.Errorf("wsserver: %s: %w", reason, err)
	}
	return nil
}

// BroadcastNotification sends n to the connected client if the client has
// subscribed to its action. Its signature matches notify.Handler.
func (h *Hub) BroadcastNotification(n hotkeys.Notification) {
	h.mu.RLock()
	conn := h.conn
	wanted := h.subscribedAll || h.subscribed[n.Action]
	h.mu.RUnlock()

	// The connection may be replaced between RUnlock and the write. A write to
	// the stale connection fails and clearIfCurrent leaves the new one alone.
	if conn == nil {
		slog.Debug("[DEBUG-WS] broadcast skipped: no connection", "action", n.Action)
		return
	}
	if !wanted {
		return
	}

	frame, err := encodeHotkey(n)
	if err != nil {
		slog.Warn("[DEBUG-WS] failed to encode notification", "error", err, "action", n.Action)
		return
	}
	if err := h.writeText(conn, frame, "BroadcastNotification"); err != nil {
		slog.Warn("[DEBUG-WS] write failed, closing connection", "action", n.Action, "error", err)
	}
}

// BroadcastLog queues a log record for the connected client. It never
// blocks and drops the record when the queue is full or the hub is stopped.
// Its signature matches sessionlog.EntryCallback.
func (h *Hub) BroadcastLog(ts time.Time, level slog.Level, msg string, source string) {
	frame, err := encodeLog(ts, level, msg, source)
	if err != nil {
		return
	}
	select {
	case <-h.done:
	case h.logs <- frame:
	default:
	}
}

// logWriter drains queued log frames. Its own failures are logged at Debug so
// that they do not feed back into the queue through the tee handler.
func (h *Hub) logWriter() {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("[DEBUG-PANIC] wsserver logWriter recovered",
				"panic", rec,
				"stack", string(debug.Stack()),
			)
		}
	}()

	for {
		select {
		case <-h.done:
			return
		case payload := <-h.logs:
			h.mu.RLock()
			conn := h.conn
			h.mu.RUnlock()
			if conn == nil {
				continue
			}
			if err := h.writeText(conn, payload, "logWriter"); err != nil {
				slog.Debug("[DEBUG-WS] log frame write failed", "error", err)
			}
		}
	}
}

// handleWS upgrades HTTP to WebSocket and runs the read pump for the
// connection.
func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("[DEBUG-WS] upgrade failed", "error", err)
		return
	}

	conn.SetReadLimit(maxReadMessageSize)

	// The read deadline is extended on every pong received from the client.
	if err := conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
		slog.Warn("[DEBUG-WS] SetReadDeadline failed on new connection", "error", err)
		h.closeConn(conn, "initial SetReadDeadline failure")
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readDeadline))
	})

	h.mu.Lock()
	oldConn := h.conn
	h.conn = conn
	h.resetSubscriptionsLocked()
	h.mu.Unlock()

	if oldConn != nil {
		// A replaced client takes its debugger session with it.
		h.debuggerAttached.Store(false)
		h.closeConn(oldConn, "replaced by new connection")
	}

	slog.Info("[DEBUG-WS] client connected", "remoteAddr", conn.RemoteAddr())

	pingDone := make(chan struct{})
	go h.pingLoop(conn, pingDone)

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("[DEBUG-PANIC] wsserver handleWS recovered",
				"panic", rec,
				"stack", string(debug.Stack()),
			)
		}

		close(pingDone)
		h.clearIfCurrent(conn)
		h.closeConn(conn, "read pump exit")
		slog.Info("[DEBUG-WS] client disconnected")
	}()

	for {
		msgType, msg, readErr := conn.ReadMessage()
		if readErr != nil {
			if websocket.IsUnexpectedCloseError(readErr, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("[DEBUG-WS] read error", "error", readErr)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		ctrl, decodeErr := decodeControl(msg)
		if decodeErr != nil {
			slog.Debug("[DEBUG-WS] rejected client message", "error", decodeErr)
			h.sendError(conn, decodeErr.Error())
			continue
		}
		h.handleControl(conn, ctrl)
	}
}

// pingLoop sends periodic WebSocket pings to detect dead connections.
// Exits when done is closed or a ping fails.
func (h *Hub) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	defer func() {
		// A connection left open without pings would never be detected dead.
		if rec := recover(); rec != nil {
			slog.Error("[DEBUG-PANIC] wsserver pingLoop recovered",
				"panic", rec,
				"stack", string(debug.Stack()),
			)
			h.clearIfCurrent(conn)
			h.closeConn(conn, "pingLoop panic recovery")
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			h.writeMu.Lock()
			if !h.setWriteDeadlineOrClose(conn, writeDeadline) {
				h.writeMu.Unlock()
				return
			}
			pingErr := conn.WriteMessage(websocket.PingMessage, nil)
			h.clearWriteDeadline(conn)
			h.writeMu.Unlock()

			if pingErr != nil {
				slog.Debug("[DEBUG-WS] ping failed, connection likely dead", "error", pingErr)
				h.clearIfCurrent(conn)
				h.closeConn(conn, "ping failure")
				return
			}
		}
	}
}

// handleControl applies a decoded client request.
func (h *Hub) handleControl(conn *websocket.Conn, msg controlMsg) {
	switch msg.Type {
	case typeDebugger:
		if !h.isCurrent(conn) {
			slog.Debug("[DEBUG-WS] debugger state from stale connection, skipping")
			return
		}
		if h.debuggerAttached.Swap(*msg.Attached) != *msg.Attached {
			slog.Info("[DEBUG-WS] debugger state changed", "attached", *msg.Attached)
		}
	case typeSubscribe, typeUnsubscribe:
		filter, err := resolveActions(msg.Actions)
		if err != nil {
			h.sendError(conn, err.Error())
			return
		}
		h.applySubscription(conn, msg.Type == typeSubscribe, filter)
	}
}

func (h *Hub) isCurrent(conn *websocket.Conn) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.conn == conn
}

// applySubscription adds or removes actions from the subscription set.
// Unsubscribing "*" clears everything; unsubscribing a single action leaves a
// "*" subscription in place.
func (h *Hub) applySubscription(conn *websocket.Conn, subscribe bool, filter actionFilter) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Messages from a replaced connection are discarded.
	if h.conn != conn {
		slog.Debug("[DEBUG-WS] subscription from stale connection, skipping")
		return
	}

	if subscribe {
		if filter.all {
			h.subscribedAll = true
		}
		for _, action := range filter.actions {
			h.subscribed[action] = true
		}
		slog.Debug("[DEBUG-WS] subscribed", "all", filter.all, "actions", len(filter.actions))
		return
	}

	if filter.all {
		h.resetSubscriptionsLocked()
	}
	for _, action := range filter.actions {
		delete(h.subscribed, action)
	}
	slog.Debug("[DEBUG-WS] unsubscribed", "all", filter.all, "actions", len(filter.actions))
}

// subscribedTo reports whether the current client receives notifications
// for action.
func (h *Hub) subscribedTo(action hotkeys.Action) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.subscribedAll || h.subscribed[action]
}

// sendError sends a JSON error message to the client.
func (h *Hub) sendError(conn *websocket.Conn, message string) {
	payload, err := encodeError(message)
	if err != nil {
		slog.Debug("[DEBUG-WS] failed to marshal error message", "error", err)
		return
	}
	if err := h.writeText(conn, payload, "sendError"); err != nil {
		slog.Debug("[DEBUG-WS] failed to send error to client", "error", err)
	}
}
