// Package server exposes HTTP handlers, including WebSocket upgrades, health
// checks, and the built-in test page.
package server

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// NewWebSocketHandler returns the handler for WebSocket upgrade requests.
// It authenticates the connection before upgrading; a missing or invalid
// token refuses the handshake with 401 and no connection state is created.
// On success a Client with a fresh UUID identifier is registered with the
// hub, which launches the read/write pumps.
func NewWebSocketHandler(hub *Hub, coord *Coordinator) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(hub.log),
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
			return
		}

		cfg := currentConfig()
		if err := Authenticate(r, cfg.AuthSecret); err != nil {
			hub.log.Warn("refused unauthenticated connection", "addr", r.RemoteAddr)
			http.Error(w, "authentication failed", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			hub.log.Error("websocket upgrade failed", "addr", r.RemoteAddr, "err", err)
			return
		}

		client := NewClient(conn, hub, coord, uuid.NewString(), r.RemoteAddr)
		hub.log.Info("authenticated connection", "conn", client.id, "addr", r.RemoteAddr)
		hub.register <- client
	}
}

// HealthHandler provides a simple health check endpoint that returns server
// status as a plain text message.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "roomrelay server is running!")
}

// TestPageHandler serves an HTML test page for exercising the chat protocol.
// It provides a simple web interface to connect with a token, register a
// username, join a room, and exchange messages.
func TestPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	html := `<!DOCTYPE html>
<html>
<head>
    <title>roomrelay test</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #log {
            border: 1px solid #ccc;
            height: 300px;
            padding: 10px;
            overflow-y: scroll;
            margin: 10px 0;
            background-color: #f9f9f9;
        }
        input[type="text"] { padding: 5px; margin-right: 6px; }
        button { padding: 5px 15px; cursor: pointer; }
    </style>
</head>
<body>
    <h1>roomrelay test</h1>
    <div>
        <input type="text" id="token" placeholder="token" value="11713">
        <input type="text" id="username" placeholder="username">
        <input type="text" id="room" placeholder="room" value="general">
        <button onclick="connect()">Connect</button>
    </div>
    <div>
        <input type="text" id="text" placeholder="message">
        <button onclick="sendMessage()">Send</button>
    </div>
    <div id="log"></div>

    <script>
        let ws = null;
        const log = document.getElementById('log');

        function append(line) {
            const div = document.createElement('div');
            div.textContent = line;
            log.appendChild(div);
            log.scrollTop = log.scrollHeight;
        }

        function emit(event, data) {
            ws.send(JSON.stringify({event: event, data: data}));
        }

        function connect() {
            const token = document.getElementById('token').value;
            ws = new WebSocket('ws://' + location.host + '/ws?token=' + token);

            ws.onopen = function() {
                append('connected');
                emit('register_user', {username: document.getElementById('username').value});
                emit('join_room', {room: document.getElementById('room').value});
            };

            ws.onmessage = function(e) {
                for (const line of e.data.split('\n')) {
                    const env = JSON.parse(line);
                    if (env.event === 'new_message') {
                        append(env.data.username + ': ' + env.data.text);
                    } else {
                        append(env.event + ' ' + JSON.stringify(env.data));
                    }
                }
            };

            ws.onclose = function() { append('disconnected'); };
        }

        function sendMessage() {
            const input = document.getElementById('text');
            if (input.value && ws && ws.readyState === WebSocket.OPEN) {
                emit('send_message', {room: document.getElementById('room').value, text: input.value});
                input.value = '';
            }
        }

        document.getElementById('text').addEventListener('keypress', function(e) {
            if (e.key === 'Enter') { sendMessage(); }
        });
    </script>
</body>
</html>`
	if _, err := fmt.Fprint(w, html); err != nil {
		slog.Error("writing test page", "err", err)
	}
}
