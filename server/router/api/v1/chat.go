package v1

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/lithammer/shortuuid/v4"

	apierrors "github.com/kiezfinder/kiezfinder/server/internal/errors"
	"github.com/kiezfinder/kiezfinder/server/internal/observability"
)

// sessionCookieName carries the opaque chat session identifier.
const sessionCookieName = "kiez_session"

// maxChatMessageLength guards against abusive payloads before the resolver
// sees them.
const maxChatMessageLength = 2000

// chatResponse is the JSON body of a successful chat call.
type chatResponse struct {
	Response string `json:"response"`
}

// errorResponse is the JSON body of a failed call.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// handleChat accepts a form-encoded message, resolves a reply and returns it
// as JSON. Validation of empty input happens here; the resolver itself never
// fails.
func (s *APIV1Service) handleChat(c echo.Context) error {
	message := strings.TrimSpace(c.FormValue("message"))
	if message == "" {
		return writeError(c, apierrors.New(apierrors.ErrCodeInvalidArgument, "message is required"))
	}
	if len(message) > maxChatMessageLength {
		return writeError(c, apierrors.New(apierrors.ErrCodeInvalidArgument, "message is too long"))
	}

	sessionID := s.sessionID(c)
	if !s.limiter.Allow(sessionID) {
		return writeError(c, apierrors.New(apierrors.ErrCodeRateLimitExceeded, "too many messages, slow down"))
	}

	reqCtx := observability.NewRequestContext(slog.Default(), sessionID)
	reply := s.Resolver.Resolve(c.Request().Context(), sessionID, message)
	reqCtx.Info("chat message resolved",
		slog.String(observability.LogFieldStrategy, string(reply.Strategy)),
		slog.Int(observability.LogFieldMessageLen, len(message)),
		slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()),
	)

	return c.JSON(http.StatusOK, chatResponse{Response: reply.Text})
}

// sessionID reads the session cookie, minting and setting a fresh id when
// the visitor has none yet.
func (s *APIV1Service) sessionID(c echo.Context) string {
	if cookie, err := c.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	id := shortuuid.New()
	c.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// writeError renders a ChatError with its mapped HTTP status.
func writeError(c echo.Context, err *apierrors.ChatError) error {
	return c.JSON(err.HTTPStatus(), errorResponse{
		Code:    string(err.Code),
		Message: err.Message,
	})
}
