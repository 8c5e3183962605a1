package web

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/educore/monitor/internal/utils"
)

// logSSERequest helps with debugging SSE connection issues behind proxies
func logSSERequest(logger *zap.Logger, r *http.Request) {
	if ce := logger.Check(zap.DebugLevel, "SSE request"); ce != nil {
		relevantHeaders := []string{
			"Accept", "Connection", "User-Agent",
			"Accept-Encoding", "X-Forwarded-For",
			"X-Forwarded-Proto", "Upgrade", "Origin",
		}

		fields := []zap.Field{
			zap.String("remote_addr", r.RemoteAddr),
			zap.String("proto", r.Proto),
			zap.Bool("tls", r.TLS != nil),
			zap.String("stream", r.URL.Query().Get("stream")),
			zap.Bool("cookies", len(r.Cookies()) > 0),
		}
		for _, header := range relevantHeaders {
			if value := r.Header.Get(header); value != "" {
				fields = append(fields, utils.SafeString(header, value))
			}
		}
		ce.Write(fields...)
	}
}
