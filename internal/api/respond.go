package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/flocknet/flock/internal/errs"
)

// errorBody is the JSON envelope of every failed request
type errorBody struct {
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

// statusOf maps an error kind to its HTTP status. Unclassified errors
// count as store failures and surface as 500.
func statusOf(err error) int {
	switch errs.KindOf(err) {
	case errs.KindValidation:
		return http.StatusBadRequest
	case errs.KindNotFound:
		return http.StatusNotFound
	case errs.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// respondError renders err with the status its kind maps to. Internal
// failures are logged in full but reach the client as an opaque message;
// raw store errors never leave the service.
func (r *Router) respondError(c *gin.Context, err error) {
	status := statusOf(err)
	kind := errs.KindOf(err)

	if status == http.StatusInternalServerError {
		r.logger.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(status, errorBody{Kind: kind.String(), Error: "internal error"})
		return
	}

	message := err.Error()
	var e *errs.Error
	if errors.As(err, &e) {
		message = e.Message
	}
	c.JSON(status, errorBody{Kind: kind.String(), Error: message})
}

// pathID parses a numeric path parameter
func pathID(c *gin.Context, name string) (int64, error) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errs.Validationf("invalid %s %q", name, raw)
	}
	return id, nil
}

// queryInt reads an optional integer query parameter. Absent or
// malformed values read as zero; the engine clamps zero to its defaults.
func queryInt(c *gin.Context, name string) int {
	n, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return 0
	}
	return n
}

// queryInt64 reads an optional int64 query parameter, zero when absent
func queryInt64(c *gin.Context, name string) int64 {
	n, err := strconv.ParseInt(c.Query(name), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
