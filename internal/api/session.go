package api

import (
	"net/http"

	"digital-store/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	cartCookie  = "cart_session"
	loginCookie = "user_session"

	cookieMaxAge = 30 * 24 * 60 * 60

	ctxUserKey = "current_user"
)

// cartSession returns the opaque cart-session token, or "" when the
// browser has none. Absence implies an empty cart.
func cartSession(c *gin.Context) string {
	token, err := c.Cookie(cartCookie)
	if err != nil {
		return ""
	}
	return token
}

// ensureCartSession returns the cart-session token, minting one on the
// first cart write.
func ensureCartSession(c *gin.Context) string {
	if token := cartSession(c); token != "" {
		return token
	}
	token := uuid.New().String()
	c.SetCookie(cartCookie, token, cookieMaxAge, "/", "", false, true)
	return token
}

// loginToken returns the login session token, or "".
func loginToken(c *gin.Context) string {
	token, err := c.Cookie(loginCookie)
	if err != nil {
		return ""
	}
	return token
}

// userMiddleware resolves the login session, if any, into the request
// context. It never rejects: anonymous browsing is the normal case.
func (h *Handler) userMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := loginToken(c); token != "" {
			if user, err := h.accounts.CurrentUser(c.Request.Context(), token); err == nil {
				c.Set(ctxUserKey, user)
			}
		}
		c.Next()
	}
}

// requireLogin rejects requests without a resolved account.
func requireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := c.Get(ctxUserKey); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Login required",
			})
			return
		}
		c.Next()
	}
}

// currentUser returns the logged-in account, or nil.
func currentUser(c *gin.Context) *models.User {
	v, ok := c.Get(ctxUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}
