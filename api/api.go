// Package api exposes the REST surface: movement commands as an alternative
// to the websocket, plus the readiness and latest-scan queries.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/rmitbot/robot-gateway/command"
	"github.com/rmitbot/robot-gateway/relay"
	"github.com/rmitbot/robot-gateway/rosbridge"
)

var log = logrus.WithField("component", "api")

// BridgeStatus is the readiness slice of the upstream connection.
type BridgeStatus interface {
	Status() rosbridge.Status
}

// API bundles the route handlers and their collaborators.
type API struct {
	gateway *command.Gateway
	speed   *command.SpeedController
	bridge  BridgeStatus
	relays  map[string]*relay.Relay
	scan    *relay.Relay // the lidar relay, nil when disabled
}

func New(gateway *command.Gateway, speed *command.SpeedController,
	bridge BridgeStatus, relays map[string]*relay.Relay, scan *relay.Relay) *API {
	return &API{
		gateway: gateway,
		speed:   speed,
		bridge:  bridge,
		relays:  relays,
		scan:    scan,
	}
}

// Routes registers every REST endpoint plus the websocket upgrade path on a
// fresh router.
func (a *API) Routes(wsHandler http.HandlerFunc) *mux.Router {
	r := mux.NewRouter()
	r.Use(corsMiddleware)

	r.HandleFunc("/ws/robot", wsHandler)

	robot := r.PathPrefix("/api/robot").Subrouter()
	robot.HandleFunc("/health", a.health).Methods(http.MethodGet)
	robot.HandleFunc("/command", a.sendCommand).Methods(http.MethodPost)
	robot.HandleFunc("/stop", a.stop).Methods(http.MethodPost)
	robot.HandleFunc("/commands", a.commands).Methods(http.MethodGet)

	r.HandleFunc("/api/rosbridge/status", a.status).Methods(http.MethodGet)

	lidar := r.PathPrefix("/api/lidar").Subrouter()
	lidar.HandleFunc("/status", a.lidarStatus).Methods(http.MethodGet)
	lidar.HandleFunc("/scan", a.latestScan).Methods(http.MethodGet)
	lidar.HandleFunc("/subscribe", a.forceSubscribe).Methods(http.MethodPost)

	return r
}

func (a *API) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "Robot gateway is running",
	})
}

type commandRequest struct {
	Action          string   `json:"action"`
	SpeedMultiplier *float64 `json:"speedMultiplier,omitempty"`
}

func (a *API) sendCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"status": "error", "message": "invalid request body",
		})
		return
	}
	if req.Action == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"status": "error", "message": "action is required",
		})
		return
	}

	scale := a.speed.Value()
	if req.SpeedMultiplier != nil {
		scale = a.speed.Set(*req.SpeedMultiplier)
	}

	cmd := command.FromAction(req.Action, scale)
	if err := a.gateway.Send(cmd); err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"status": "error", "message": err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"command": cmd,
	})
}

func (a *API) stop(w http.ResponseWriter, _ *http.Request) {
	if err := a.gateway.SendStop(); err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"status": "error", "message": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Robot stopped",
	})
}

func (a *API) commands(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"actions": command.Vocabulary(),
		"descriptions": map[string]string{
			command.ActionForward:       "Forward",
			command.ActionBackward:      "Backward",
			command.ActionStrafeLeft:    "Strafe left",
			command.ActionStrafeRight:   "Strafe right",
			command.ActionDiagFwdLeft:   "Diagonal forward-left",
			command.ActionDiagFwdRight:  "Diagonal forward-right",
			command.ActionDiagBackLeft:  "Diagonal backward-left",
			command.ActionDiagBackRight: "Diagonal backward-right",
			command.ActionRotateLeft:    "Rotate left",
			command.ActionRotateRight:   "Rotate right",
			command.ActionStop:          "Stop",
		},
	})
}

func (a *API) status(w http.ResponseWriter, _ *http.Request) {
	statuses := make([]relay.Status, 0, len(a.relays))
	for _, rl := range a.relays {
		statuses = append(statuses, rl.Status())
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rosbridge":       a.bridge.Status(),
		"relays":          statuses,
		"speedMultiplier": a.speed.Value(),
	})
}

func (a *API) lidarStatus(w http.ResponseWriter, _ *http.Request) {
	if a.scan == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"status": "error", "message": "lidar relay not configured",
		})
		return
	}
	writeJSON(w, http.StatusOK, a.scan.Status())
}

func (a *API) latestScan(w http.ResponseWriter, _ *http.Request) {
	if a.scan == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"status": "error", "message": "lidar relay not configured",
		})
		return
	}

	data := a.scan.Latest()
	if data == nil {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "no_data",
			"message": "No laser scan data available yet",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   data,
	})
}

func (a *API) forceSubscribe(w http.ResponseWriter, _ *http.Request) {
	if a.scan == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"status": "error", "message": "lidar relay not configured",
		})
		return
	}

	if err := a.scan.Subscribe(); err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"status": "error", "message": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Subscription requested",
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("failed to encode response")
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
