package server

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/render"
	"github.com/jrsteele09/aural-portal/session"
	"github.com/rs/zerolog/log"
)

const socketPingInterval = 30 * time.Second

// rpcError is the error envelope of the RPC endpoints.
type rpcError struct {
	Error rpcErrorBody `json:"error"`
}

type rpcErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

type rpcResult struct {
	Result any `json:"result"`
}

// meResponse is the signed-in user as exposed to scripts.
type meResponse struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	EmailVerified bool      `json:"emailVerified"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

// HealthHandler is the liveness probe
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.PlainText(w, r, "ok")
	}
}

func (s *Server) RPCHealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, rpcResult{Result: "ok"})
	}
}

// RPCMeHandler returns the browser's current user, waiting for the session the same way the gate does.
func (s *Server) RPCMeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := requireClient(w, r)
		if !ok {
			return
		}

		c.Store.RefreshIfStale(s.config.GetSessionMaxAge())
		ctx, cancel := context.WithTimeout(r.Context(), s.config.GetGateWait())
		defer cancel()
		st := c.Store.Wait(ctx)

		switch {
		case st.Pending:
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, rpcError{Error: rpcErrorBody{Code: "SESSION_PENDING", Message: "session is still resolving"}})
		case !st.SignedIn():
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, rpcError{Error: rpcErrorBody{Code: "UNAUTHORIZED"}})
		default:
			render.JSON(w, r, rpcResult{Result: meResponse{
				ID:            st.Session.UserID,
				Email:         st.Session.Email,
				Name:          st.Session.Name,
				EmailVerified: st.Session.EmailVerified,
				ExpiresAt:     st.Session.ExpiresAt,
			}})
		}
	}
}

// sessionChanged reports whether a resolved state no longer matches the identity key a page
// was rendered with.
func sessionChanged(st session.State, key string) bool {
	return !st.Pending && session.IdentityKey(st.Session) != key
}

type sessionEvent struct {
	Type string `json:"type"`
}

// SessionSocketHandler tells an open page when its browser's session changes so the page can
// reload and pass through the gate again (GET /ws/session?k=<identity key>).
func (s *Server) SessionSocketHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := requireClient(w, r)
		if !ok {
			return
		}
		key := r.URL.Query().Get("k")

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			log.Debug().Err(err).Msg("[server SessionSocketHandler] accept")
			return
		}
		defer conn.CloseNow()

		// Reads are discarded; ctx ends when the page goes away.
		ctx := conn.CloseRead(r.Context())

		updates, unsubscribe := c.Store.Subscribe()
		defer unsubscribe()

		notify := func() {
			if err := wsjson.Write(ctx, conn, sessionEvent{Type: "session-changed"}); err != nil {
				log.Debug().Err(err).Msg("[server SessionSocketHandler] write")
				return
			}
			_ = conn.Close(websocket.StatusNormalClosure, "session changed")
		}

		if sessionChanged(c.Store.Snapshot(), key) {
			notify()
			return
		}

		ticker := time.NewTicker(socketPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case st := <-updates:
				if sessionChanged(st, key) {
					notify()
					return
				}
			case <-ticker.C:
				if err := conn.Ping(ctx); err != nil {
					return
				}
			}
		}
	}
}
