package handlers

import (
	"net/http"

	"cartrack-backend/pkg/utils"
)

// ClientCounter reports the number of open websocket connections
type ClientCounter interface {
	GetClientCount() int
}

// Health reports liveness and the open websocket connection count
func Health(clients ClientCounter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"status":            "ok",
			"websocket_clients": clients.GetClientCount(),
		})
	}
}
