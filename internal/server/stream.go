package server

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"camconnect/internal/wizard"
)

const (
	streamWriteTimeout = 5 * time.Second
	streamBuffer       = 8
	streamReadLimit    = 4096
)

var wizardUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		host := strings.ToLower(strings.TrimSpace(r.Host))
		originHost := strings.ToLower(strings.TrimSpace(u.Host))
		return host == originHost
	},
}

// streamCommand is a client action received over the websocket.
type streamCommand struct {
	Action   string `json:"action"`
	Step     string `json:"step,omitempty"`
	Platform string `json:"platform,omitempty"`
	Visible  *bool  `json:"visible,omitempty"`
}

func (s *Server) handleWizardWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wizardUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.serveWizardConnection(conn)
}

// serveWizardConnection pushes the current snapshot, then one payload per
// controller notification until the client goes away.
func (s *Server) serveWizardConnection(conn *websocket.Conn) {
	defer conn.Close()
	conn.SetReadLimit(streamReadLimit)

	updates := make(chan wizard.Snapshot, streamBuffer)
	unsubscribe := s.wizard.Subscribe(func(snap wizard.Snapshot) {
		select {
		case updates <- snap:
			return
		default:
		}
		// slow reader: drop the oldest pending snapshot
		select {
		case <-updates:
		default:
		}
		select {
		case updates <- snap:
		default:
		}
	})
	defer unsubscribe()

	if err := writeStreamPayload(conn, s.wizardResponse()); err != nil {
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			s.applyCommand(data)
		}
	}()

	for {
		select {
		case snap := <-updates:
			payload := wizardResponse{Snapshot: snap, Info: s.info, Steps: s.wizard.Steps()}
			if err := writeStreamPayload(conn, payload); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func (s *Server) applyCommand(data []byte) {
	var cmd streamCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		s.logger.Printf("server: ignoring malformed command: %v", err)
		return
	}
	switch cmd.Action {
	case "toggle":
		s.wizard.ToggleStep(cmd.Step)
	case "platform":
		s.wizard.SetPlatform(cmd.Platform)
	case "visibility":
		if cmd.Visible != nil {
			s.wizard.SetVisible(*cmd.Visible)
		}
	case "reset":
		s.wizard.Reset()
	default:
		s.logger.Printf("server: ignoring unknown action %q", cmd.Action)
	}
}

func writeStreamPayload(conn *websocket.Conn, payload wizardResponse) error {
	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
	return conn.WriteJSON(payload)
}
