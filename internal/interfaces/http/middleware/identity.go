package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// HeaderRequestID carries the request correlation ID.
	HeaderRequestID = "X-Request-ID"
	// HeaderUserRoles carries the caller's roles as set by the upstream
	// gateway, comma separated.
	HeaderUserRoles = "X-User-Roles"

	ctxKeyRequestID = "treatyboard.request_id"
	ctxKeyRoles     = "treatyboard.roles"
)

// RequestID reuses an incoming X-Request-ID or generates a UUID, stores it
// on the context and echoes it in the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxKeyRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// GetRequestID returns the ID stored by RequestID.
func GetRequestID(c *gin.Context) string {
	return c.GetString(ctxKeyRequestID)
}

// Roles reads X-User-Roles into the context.  An absent header yields no
// roles, which the visibility filter treats as no access.
func Roles() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ctxKeyRoles, ParseRoles(c.GetHeader(HeaderUserRoles)))
		c.Next()
	}
}

// GetRoles returns the roles stored by Roles.
func GetRoles(c *gin.Context) []string {
	v, ok := c.Get(ctxKeyRoles)
	if !ok {
		return nil
	}
	roles, _ := v.([]string)
	return roles
}

// ParseRoles splits a comma separated role list, dropping blanks.
func ParseRoles(header string) []string {
	var roles []string
	for _, r := range strings.Split(header, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, r)
		}
	}
	return roles
}
