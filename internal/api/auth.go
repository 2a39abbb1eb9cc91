package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// signup handles account registration
func (h *Handler) signup(c *gin.Context) {
	result, err := h.accounts.Signup(c.Request.Context(),
		c.PostForm("username"),
		c.PostForm("email"),
		c.PostForm("password"),
		c.PostForm("confirm_password"))
	if err != nil {
		respondError(c, err)
		return
	}

	message := "Registration successful! Please check your email to confirm your account."
	if result.AutoConfirmed {
		message = "Registration successful! Your account has been automatically confirmed."
	}
	c.JSON(http.StatusCreated, gin.H{"message": message})
}

// login opens a login session
func (h *Handler) login(c *gin.Context) {
	token, user, err := h.accounts.Login(c.Request.Context(),
		c.PostForm("username"), c.PostForm("password"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.SetCookie(loginCookie, token, cookieMaxAge, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{
		"message":  "Logged in",
		"username": user.Username,
	})
}

// logout closes the login session
func (h *Handler) logout(c *gin.Context) {
	if err := h.accounts.Logout(c.Request.Context(), loginToken(c)); err != nil {
		respondError(c, err)
		return
	}
	c.SetCookie(loginCookie, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// confirmEmail confirms the account behind a confirmation token
func (h *Handler) confirmEmail(c *gin.Context) {
	if err := h.accounts.Confirm(c.Request.Context(), c.Param("token")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Email confirmed successfully! You can now log in."})
}

// resendConfirmation issues a fresh confirmation token. The response
// never reveals whether the account exists.
func (h *Handler) resendConfirmation(c *gin.Context) {
	if err := h.accounts.ResendConfirmation(c.Request.Context(), c.PostForm("email")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "If an unconfirmed account with that email exists, we have sent a confirmation link.",
	})
}

// forgotPassword issues a password-reset token
func (h *Handler) forgotPassword(c *gin.Context) {
	if err := h.accounts.ForgotPassword(c.Request.Context(), c.PostForm("email")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "If an account with that email exists, we have sent a password reset link.",
	})
}

// resetPassword sets a new password from a reset token
func (h *Handler) resetPassword(c *gin.Context) {
	err := h.accounts.ResetPassword(c.Request.Context(), c.Param("token"),
		c.PostForm("password"), c.PostForm("confirm_password"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password reset successful! You can now log in with your new password."})
}

// profile returns the logged-in account
func (h *Handler) profile(c *gin.Context) {
	c.JSON(http.StatusOK, currentUser(c))
}

// changePassword rotates the logged-in account's password
func (h *Handler) changePassword(c *gin.Context) {
	err := h.accounts.ChangePassword(c.Request.Context(), currentUser(c),
		c.PostForm("current_password"),
		c.PostForm("new_password"),
		c.PostForm("confirm_password"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}

// chatMessage handles a support-chat turn
func (h *Handler) chatMessage(c *gin.Context) {
	var req struct {
		Message string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message cannot be empty"})
		return
	}

	reply, err := h.chat.Chat(c.Request.Context(), ensureCartSession(c), req.Message)
	if err != nil && reply == nil {
		respondError(c, err)
		return
	}
	if err != nil {
		// Model failure: the fallback reply still goes to the client.
		c.JSON(http.StatusInternalServerError, gin.H{
			"success":  false,
			"response": reply.Response,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"response":  reply.Response,
		"sentiment": reply.Sentiment,
	})
}

// clearChat drops the session's conversation history
func (h *Handler) clearChat(c *gin.Context) {
	if err := h.chat.ClearHistory(c.Request.Context(), ensureCartSession(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Chat history cleared"})
}

// chatHistory returns the session's conversation history
func (h *Handler) chatHistory(c *gin.Context) {
	history, err := h.chat.History(c.Request.Context(), ensureCartSession(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": history})
}
