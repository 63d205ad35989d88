package handlers

import "github.com/gin-gonic/gin"

// ContextUserIDKey is where the auth middleware stores the authenticated user ID.
const ContextUserIDKey = "userID"

func getUserID(c *gin.Context) string {
	return c.GetString(ContextUserIDKey)
}
