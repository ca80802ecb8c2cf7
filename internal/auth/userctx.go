package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/soundbridge/remote-projects-backend/internal/users"
)

const (
	CtxFirebaseUID = "firebase_uid"
	CtxUserDBID    = "user_db_id"
)

// WithUser resolves the caller to a database user id. The Firebase middleware,
// when mounted, has already set firebase_uid; without it the X-User-Id header
// stands in, which keeps local development tokenless.
func WithUser(userRepo *users.Repo) gin.HandlerFunc {
	return func(c *gin.Context) {
		fuid := c.GetString(CtxFirebaseUID)
		if fuid == "" {
			fuid = strings.TrimSpace(c.GetHeader("X-User-Id"))
		}
		if fuid == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "missing user identity"})
			c.Abort()
			return
		}

		uid, err := userRepo.EnsureUser(c.Request.Context(), users.UpsertUser{
			FirebaseUID: fuid,
			Email:       c.GetString("email"),
			DisplayName: c.GetHeader("X-User-Name"),
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "ensure user: " + err.Error()})
			c.Abort()
			return
		}

		c.Set(CtxFirebaseUID, fuid)
		c.Set(CtxUserDBID, uid)
		c.Next()
	}
}

func UserDBID(c *gin.Context) string {
	return c.GetString(CtxUserDBID)
}

func UserFirebaseUID(c *gin.Context) string {
	return c.GetString(CtxFirebaseUID)
}
