package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-power/internal/power"
)

// maxDeviceIDLen bounds device identifiers accepted from clients.
const maxDeviceIDLen = 100

// UpdateResponse acknowledges a queued command.
type UpdateResponse struct {
	Status string       `json:"status"`
	ID     string       `json:"id"`
	Cmd    power.Action `json:"cmd"`
}

// DeviceResponse is one row of the device table.
type DeviceResponse struct {
	ID    string      `json:"id"`
	State power.State `json:"state"`
}

// handleUpdate queues a command for the power actor.
//
// The body is {"id": "node-0", "cmd": "On"}; cmd is case-insensitive.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var cmd power.Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		if errors.Is(err, power.ErrInvalidAction) {
			writeBadRequest(w, `cmd must be "On" or "Off"`)
			return
		}
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if cmd.DeviceID == "" || len(cmd.DeviceID) > maxDeviceIDLen {
		writeBadRequest(w, "invalid device ID")
		return
	}
	if !cmd.Action.IsValid() {
		writeBadRequest(w, `cmd must be "On" or "Off"`)
		return
	}

	// Diagnostic only; the actor makes the authoritative decision.
	if !s.power.Snapshot().Has(cmd.DeviceID) {
		writeNotFound(w, "device not found")
		return
	}

	if err := s.power.Submit(cmd); err != nil {
		switch {
		case errors.Is(err, power.ErrOverloaded):
			s.logger.Warn("command dropped", "device_id", cmd.DeviceID, "error", err)
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusServiceUnavailable, ErrCodeOverloaded, "power service is overloaded, retry later")
		case errors.Is(err, power.ErrStopped):
			writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "power service is not running")
		default:
			writeBadRequest(w, err.Error())
		}
		return
	}

	s.logger.Debug("command queued", "device_id", cmd.DeviceID, "cmd", cmd.Action)
	writeJSON(w, http.StatusAccepted, UpdateResponse{
		Status: "accepted",
		ID:     cmd.DeviceID,
		Cmd:    cmd.Action,
	})
}

// handleGetState returns the current snapshot as {"id": "State", ...}.
func (s *Server) handleGetState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.power.Snapshot())
}

// handleListDevices returns the device table as a sorted list with counts.
func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	snap := s.power.Snapshot()

	devices := make([]DeviceResponse, 0, snap.Len())
	for _, id := range snap.IDs() {
		st, _ := snap.Get(id)
		devices = append(devices, DeviceResponse{ID: id, State: st})
	}

	byState := make(map[string]int, 3)
	for st, n := range snap.CountByState() {
		byState[st.String()] = n
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"devices":  devices,
		"count":    len(devices),
		"by_state": byState,
	})
}

// handleGetDevice returns a single device's state.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	st, ok := s.power.Snapshot().Get(id)
	if !ok {
		writeNotFound(w, "device not found")
		return
	}
	writeJSON(w, http.StatusOK, DeviceResponse{ID: id, State: st})
}
