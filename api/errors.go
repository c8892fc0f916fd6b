package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rustyeddy/signaltrader/journal"
	"github.com/rustyeddy/signaltrader/market"
	"github.com/rustyeddy/signaltrader/perf"
	"github.com/rustyeddy/signaltrader/risk"
	"github.com/rustyeddy/signaltrader/sim"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func abort(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: ErrorDetail{Code: code, Message: msg}})
}

// fail maps a domain error to a status and error code.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	switch {
	case errors.Is(err, journal.ErrNotFound):
		abort(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, market.ErrPrecondition):
		abort(c, http.StatusBadRequest, "PRECONDITION_FAILED", err.Error())
	case errors.Is(err, sim.ErrInvalidConfig), errors.Is(err, perf.ErrInvalidConfig):
		abort(c, http.StatusBadRequest, "INVALID_CONFIG", err.Error())
	case errors.Is(err, risk.ErrInvalidCost):
		abort(c, http.StatusUnprocessableEntity, "INVALID_COST", err.Error())
	default:
		abort(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
	}
}
