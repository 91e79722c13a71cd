package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"podcast-app/internal/sanitize"

	"github.com/gin-gonic/gin"
)

// SanitizeAndCleanInputMiddleware strips markup from every string in a JSON body,
// including nested objects and arrays. Non-string values pass through.
func SanitizeAndCleanInputMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost &&
			c.Request.Method != http.MethodPut &&
			c.Request.Method != http.MethodPatch {
			c.Next()
			return
		}

		buf, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid body"})
			return
		}
		if len(bytes.TrimSpace(buf)) == 0 {
			c.Request.Body = io.NopCloser(bytes.NewReader(buf))
			c.Next()
			return
		}

		var body interface{}
		dec := json.NewDecoder(bytes.NewReader(buf))
		dec.UseNumber()
		if err := dec.Decode(&body); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Malformed JSON"})
			return
		}

		newBody, _ := json.Marshal(cleanValue(body))
		c.Request.Body = io.NopCloser(bytes.NewBuffer(newBody))
		c.Request.ContentLength = int64(len(newBody))

		c.Next()
	}
}

func cleanValue(v interface{}) interface{} {
	switch t := v.(type) {
	case string:
		return sanitize.PlainText(t)
	case map[string]interface{}:
		for k, inner := range t {
			t[k] = cleanValue(inner)
		}
		return t
	case []interface{}:
		for i, inner := range t {
			t[i] = cleanValue(inner)
		}
		return t
	}
	return v
}
