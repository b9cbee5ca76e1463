package middleware

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/shravanasati/mearas/handler"
	"github.com/shravanasati/mearas/request"
	"github.com/shravanasati/mearas/response"
	"github.com/shravanasati/mearas/router"
)

// Logger logs one structured record per request. A nil logger uses
// slog.Default().
func Logger(logger *slog.Logger) router.Middleware {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next handler.Handler) handler.Handler {
		return func(r *request.Request) response.Response {
			start := time.Now()
			resp := response.From(next(r))

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.Path),
				slog.Int("status", int(resp.GetStatusCode())),
				slog.Duration("latency", time.Since(start)),
				slog.String("remote", r.RemoteAddr),
			}
			if route := router.MatchedPattern(r); route != "" {
				attrs = append(attrs, slog.String("route", route))
			}
			if id := GetRequestID(r); id != "" {
				attrs = append(attrs, slog.String("request_id", id))
			}

			level := slog.LevelInfo
			if resp.GetStatusCode().Class() == 5 {
				level = slog.LevelError
			}
			logger.LogAttrs(r.Context(), level, "request", attrs...)
			return resp
		}
	}
}

// ColoredLogger writes a colored one-line summary per request to w, for
// local development.
func ColoredLogger(w io.Writer) router.Middleware {
	l := log.New(w, "", log.LstdFlags)
	renderer := lipgloss.NewRenderer(w)
	methodStyle := renderer.NewStyle().
		Foreground(lipgloss.Color("15")).
		Bold(true).
		Background(lipgloss.Color("12")).
		Width(8).
		Align(lipgloss.Center)

	return func(next handler.Handler) handler.Handler {
		return func(r *request.Request) response.Response {
			start := time.Now()
			resp := response.From(next(r))

			status := resp.GetStatusCode()
			styledStatus := statusStyle(renderer, status).Render(fmt.Sprintf("%d", status))
			l.Printf("%s %s %s in %s\n", methodStyle.Render(r.Method), r.Target, styledStatus, time.Since(start))

			return resp
		}
	}
}

func statusStyle(renderer *lipgloss.Renderer, code response.StatusCode) lipgloss.Style {
	style := renderer.NewStyle().Bold(true)
	switch code.Class() {
	case 2:
		return style.Foreground(lipgloss.Color("46"))
	case 3:
		return style.Foreground(lipgloss.Color("226"))
	case 4:
		return style.Foreground(lipgloss.Color("208"))
	case 5:
		return style.Foreground(lipgloss.Color("196"))
	default:
		return style.Foreground(lipgloss.Color("15"))
	}
}
