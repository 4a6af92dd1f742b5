package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"offerlens/internal/logger"
	"offerlens/internal/service"
)

var dataURLMarker = []byte(";base64,")

// CaptureHandler accepts one frame from the capture page, runs it through the
// manager and answers with the capture result. The body is either the raw
// JPEG/PNG bytes or a canvas data URL.
func CaptureHandler(manager *service.Manager, maxFrameBytes int64, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxFrameBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				http.Error(w, "Frame too large", http.StatusRequestEntityTooLarge)
				return
			}
			http.Error(w, "Unable to read frame", http.StatusBadRequest)
			return
		}

		frame, err := decodeFrame(body)
		if err != nil {
			http.Error(w, "Malformed frame", http.StatusBadRequest)
			return
		}
		if len(frame) == 0 {
			http.Error(w, "Empty frame", http.StatusBadRequest)
			return
		}

		result, err := manager.HandleCapture(r.Context(), frame)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrBusy):
				w.Header().Set("Retry-After", "1")
				http.Error(w, "Busy, try again", http.StatusServiceUnavailable)
			case errors.Is(err, service.ErrUnavailable), errors.Is(err, service.ErrStopped):
				http.Error(w, "Detector unavailable", http.StatusServiceUnavailable)
			case errors.Is(err, service.ErrDetection):
				http.Error(w, "Could not process frame", http.StatusUnprocessableEntity)
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				logger.Warning("Capture abandoned by client: %v", err)
			default:
				logger.Error("Capture failed: %v", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusOK, result, logger)
	}
}

// decodeFrame unwraps "data:image/jpeg;base64,..." bodies and passes raw bytes through.
func decodeFrame(body []byte) ([]byte, error) {
	if !bytes.HasPrefix(body, []byte("data:")) {
		return body, nil
	}
	i := bytes.Index(body, dataURLMarker)
	if i < 0 {
		return nil, errors.New("data URL is not base64")
	}
	payload := bytes.TrimSpace(body[i+len(dataURLMarker):])
	frame := make([]byte, base64.StdEncoding.DecodedLen(len(payload)))
	n, err := base64.StdEncoding.Decode(frame, payload)
	if err != nil {
		return nil, err
	}
	return frame[:n], nil
}

func writeJSON(w http.ResponseWriter, status int, v any, logger *logger.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}
