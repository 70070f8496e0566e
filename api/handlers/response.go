package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	custom_err "github.com/customeros/rfpstack/api/errors"
	"github.com/customeros/rfpstack/internal/tracing"
)

// HealthCheck reports process liveness.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func respondWithError(c *gin.Context, span opentracing.Span, err error) {
	tracing.TraceErr(span, err)

	status := custom_err.HttpStatus(err)
	body := gin.H{"success": false, "error": err.Error()}

	var multi *custom_err.MultiErrors
	if errors.As(err, &multi) {
		body["fields"] = multi.Fields()
	}
	c.JSON(status, body)
}
