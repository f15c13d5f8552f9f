package web

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// handleEvents streams a session's progress events over SSE. The stream
// ends with the run's terminal event or when the client disconnects.
func (s *Server) handleEvents(c echo.Context) error {
	if s.hub == nil {
		return ErrorResponse(c, http.StatusServiceUnavailable, "event stream unavailable", nil)
	}

	sessionID := c.Param("id")

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	ch := s.hub.Subscribe(sessionID)
	defer s.hub.Unsubscribe(sessionID, ch)

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-ch:
			if !ok {
				return nil
			}

			payload, err := json.Marshal(ev)
			if err != nil {
				s.logger.Warn().Err(err).Msg("Encoding progress event failed")
				continue
			}

			if _, err := fmt.Fprintf(res, "data: %s\n\n", payload); err != nil {
				return nil
			}
			res.Flush()

			if ev.Terminal() {
				return nil
			}
		}
	}
}
