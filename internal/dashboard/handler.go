package dashboard

import (
	"context"
	"embed"
	"encoding/json"
	"net/http"
	"time"

	"nhooyr.io/websocket"

	"github.com/coal/siterisk/internal/model"
)

// Prefix is the path all dashboard routes live under.
const Prefix = "/_siterisk/"

//go:embed static/dashboard.html
var staticFS embed.FS

// Scanner runs an ad-hoc scan.
type Scanner interface {
	Run(ctx context.Context) (*model.ScanResult, error)
}

// Handler returns an http.Handler that serves the dashboard routes. scanner
// may be nil, which disables the scan trigger.
func Handler(hub *Hub, scanner Scanner) http.Handler {
	mux := http.NewServeMux()

	// Dashboard HTML
	mux.HandleFunc(Prefix, func(w http.ResponseWriter, r *http.Request) {
		data, err := staticFS.ReadFile("static/dashboard.html")
		if err != nil {
			http.Error(w, "dashboard not found", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(data)
	})

	// WebSocket endpoint
	mux.HandleFunc(Prefix+"ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			return
		}
		defer conn.CloseNow()

		hub.Register(conn)
		defer hub.Unregister(conn)

		// Reads are discarded; the connection lives until the client leaves.
		ctx := conn.CloseRead(context.Background())
		<-ctx.Done()
	})

	mux.HandleFunc(Prefix+"api/stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, hub.StatsSnapshot())
	})

	mux.HandleFunc(Prefix+"api/scans", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, hub.Scans().All())
	})

	mux.HandleFunc(Prefix+"api/latest", func(w http.ResponseWriter, r *http.Request) {
		latest, ok := hub.Latest()
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no scans yet"})
			return
		}
		writeJSON(w, http.StatusOK, latest)
	})

	mux.HandleFunc(Prefix+"api/policy", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, hub.PolicyConfig())
	})

	mux.HandleFunc(Prefix+"api/scan", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "use POST"})
			return
		}
		if scanner == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "scanning disabled"})
			return
		}
		res, err := scanner.Run(r.Context())
		if res == nil {
			msg := "scan produced no result"
			if err != nil {
				msg = err.Error()
			}
			hub.logger.Error().Err(err).Msg("ad-hoc scan failed")
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msg})
			return
		}
		if err != nil {
			hub.logger.Warn().Err(err).Str("scan_id", res.ScanID).Msg("ad-hoc scan delivered with errors")
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"scan_id": res.ScanID,
			"summary": res.Summary,
			"alerts":  len(res.Alerts),
		})
	})

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Run starts the periodic stats broadcast in background.
func Run(ctx context.Context, hub *Hub) {
	go hub.StartStatsBroadcast(ctx, 5*time.Second)
}
