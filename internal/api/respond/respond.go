// Package respond holds the small helpers every handler package shares.
package respond

import (
	"net/http"

	"podcast-app/internal/apperr"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func MustUserID(c *gin.Context) (uint, bool) {
	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return 0, false
	}
	return userID, true
}

// Error maps err to its HTTP status. Server-side failures are logged with their
// cause; clients only ever see the reason.
func Error(c *gin.Context, log logrus.FieldLogger, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
	}
	c.JSON(status, gin.H{"error": apperr.Reason(err)})
}
