package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/iudanet/offsync/internal/zstdcompress"
	"github.com/iudanet/offsync/pkg/api"
)

// Decompress распаковывает тела запросов с Content-Encoding: zstd.
// Сжатое тело ограничено maxBody байтами, распакованное - zstdcompress.MaxDecodedSize.
// Другие кодировки отклоняются с 415.
func Decompress(logger *slog.Logger, maxBody int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			encoding := r.Header.Get("Content-Encoding")
			switch encoding {
			case "", "identity":
				next.ServeHTTP(w, r)
				return
			case zstdcompress.Encoding:
			default:
				logger.Warn("Unsupported content encoding", "encoding", encoding, "path", r.URL.Path)
				writeMiddlewareError(w, http.StatusUnsupportedMediaType, "unsupported content encoding")
				return
			}

			compressed, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					writeMiddlewareError(w, http.StatusRequestEntityTooLarge, "request body too large")
					return
				}
				writeMiddlewareError(w, http.StatusBadRequest, "failed to read request body")
				return
			}

			body, err := zstdcompress.Decompress(compressed)
			if err != nil {
				logger.Warn("Failed to decompress request", "path", r.URL.Path, "error", err)
				writeMiddlewareError(w, http.StatusBadRequest, "invalid zstd body")
				return
			}

			logger.Debug("Request decompressed",
				"path", r.URL.Path,
				"compressed", len(compressed),
				"decompressed", len(body))

			r.Body = io.NopCloser(bytes.NewReader(body))
			r.ContentLength = int64(len(body))
			r.Header.Set("Content-Length", strconv.Itoa(len(body)))
			r.Header.Del("Content-Encoding")

			next.ServeHTTP(w, r)
		})
	}
}

func writeMiddlewareError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: message})
}
