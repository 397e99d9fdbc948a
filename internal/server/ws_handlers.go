package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/CK6170/calunc-go/modern"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// local app; allow all
		return true
	},
}

func (s *Server) handleWSBalance(w http.ResponseWriter, r *http.Request) {
	s.handleWSHub(w, r, s.wsBalance)
}

func (s *Server) handleWSRecords(w http.ResponseWriter, r *http.Request) {
	s.handleWSHub(w, r, s.wsRecords)
}

func (s *Server) handleWSHub(w http.ResponseWriter, r *http.Request, hub *WSHub) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	client := hub.Add(conn)

	// Keep reading until client disconnects
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			hub.Remove(client)
			return
		}
	}
}

// handleWSCalculate answers every {kind, input} message with a "report" or
// an "error" message, so a form can recompute on each keystroke.
func (s *Server) handleWSCalculate(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	client := &WSClient{conn: conn}
	defer conn.Close()

	for {
		_, b, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var req CalculateRequest
		if err := json.Unmarshal(b, &req); err != nil {
			_ = client.Send(WSMessage{Type: "error", Data: APIError{Error: err.Error()}})
			continue
		}
		rep, err := modern.Compute(req.Kind, req.Input, s.opts.Calc)
		if err != nil {
			_ = client.Send(WSMessage{Type: "error", Data: APIError{Error: err.Error()}})
			continue
		}
		if err := client.Send(WSMessage{Type: "report", Data: rep}); err != nil {
			return
		}
	}
}
