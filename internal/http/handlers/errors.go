package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/kai426/Dignus-sub001/domain"
	"go.uber.org/zap"
)

// statusLocked is returned while a CPF is locked out
const statusLocked = http.StatusLocked

var kindStatus = map[domain.ErrorKind]int{
	domain.KindValidation: http.StatusBadRequest,
	domain.KindNotFound:   http.StatusNotFound,
	domain.KindConflict:   http.StatusConflict,
	domain.KindAuth:       http.StatusUnauthorized,
	domain.KindForbidden:  http.StatusForbidden,
	domain.KindState:      http.StatusConflict,
	domain.KindInternal:   http.StatusInternalServerError,
}

// responder writes domain errors as JSON. Handlers embed it.
type responder struct {
	logger *zap.Logger
	clock  clockwork.Clock
}

// fail maps err to a status code and body. Internal failures are logged and
// answered with an opaque message.
func (r responder) fail(c *gin.Context, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		r.logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error", "code": "INTERNAL"})
		return
	}

	status := kindStatus[de.Kind]
	if status == 0 {
		status = http.StatusInternalServerError
	}
	body := gin.H{"error": de.Message, "code": de.Code}

	switch {
	case errors.Is(de, domain.ErrAccountLocked):
		status = statusLocked
		if de.LockedUntil != nil {
			body["locked_until"] = de.LockedUntil.UTC()
			body["remaining_minutes"] = domain.RemainingMinutes(*de.LockedUntil, r.clock.Now())
		}
	case de.Kind == domain.KindInternal:
		r.logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.String("code", de.Code),
			zap.Error(err))
		body["error"] = "internal server error"
	}
	if de.AttemptsRemaining != nil {
		body["attempts_remaining"] = *de.AttemptsRemaining
	}

	c.JSON(status, body)
}

// badRequest answers a binding failure
func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "INVALID_REQUEST"})
}
