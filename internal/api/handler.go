package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"digital-store/internal/service"
	"digital-store/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	catalog  *service.CatalogService
	cart     *service.CartService
	checkout *service.CheckoutService
	accounts *service.AccountService
	chat     *service.ChatService
}

// NewHandler creates a new HTTP handler
func NewHandler(
	catalog *service.CatalogService,
	cart *service.CartService,
	checkout *service.CheckoutService,
	accounts *service.AccountService,
	chat *service.ChatService,
) *Handler {
	return &Handler{
		catalog:  catalog,
		cart:     cart,
		checkout: checkout,
		accounts: accounts,
		chat:     chat,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())
	router.Use(h.userMiddleware())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/", h.home)
	router.GET("/category/:category", h.categoryPage)
	router.GET("/product/:id", h.productDetail)
	router.GET("/search", h.search)

	router.POST("/add_to_cart/:id", h.addToCart)
	router.GET("/cart", h.showCart)
	router.POST("/update_cart/:item_id", h.updateCart)
	router.POST("/remove_from_cart/:item_id", h.removeFromCart)

	router.GET("/checkout", h.showCheckout)
	router.POST("/create_paypal_order", h.createPayPalOrder)
	router.POST("/capture_paypal_order", h.capturePayPalOrder)
	router.GET("/checkout/success", h.checkoutSuccess)

	auth := router.Group("/auth")
	{
		auth.POST("/signup", h.signup)
		auth.POST("/login", h.login)
		auth.POST("/logout", h.logout)
		auth.GET("/confirm/:token", h.confirmEmail)
		auth.POST("/resend-confirmation", h.resendConfirmation)
		auth.POST("/forgot-password", h.forgotPassword)
		auth.POST("/reset-password/:token", h.resetPassword)
		auth.GET("/profile", requireLogin(), h.profile)
		auth.POST("/change-password", requireLogin(), h.changePassword)
	}

	chatbot := router.Group("/chatbot")
	{
		chatbot.POST("/chat", h.chatMessage)
		chatbot.POST("/clear", h.clearChat)
		chatbot.GET("/history", h.chatHistory)
	}
}

// respondError maps service failures to HTTP statuses.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	case errors.Is(err, service.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cart is empty"})
	case errors.Is(err, service.ErrCheckoutInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": "Checkout already in progress"})
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrUnconfirmedAccount):
		c.JSON(http.StatusForbidden, gin.H{"error": "Please confirm your email address before logging in"})
	case errors.Is(err, service.ErrChatDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Chat is not available"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// home returns featured products from all categories
func (h *Handler) home(c *gin.Context) {
	featured, err := h.catalog.Featured(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, featured)
}

// categoryPage returns one page of a category listing
func (h *Handler) categoryPage(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))

	result, err := h.catalog.ByCategory(c.Request.Context(),
		c.Param("category"), c.Query("search"), c.DefaultQuery("sort", "title"), page)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// productDetail returns a product with its related products
func (h *Handler) productDetail(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	product, err := h.catalog.ByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	related, err := h.catalog.Related(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"product": product,
		"related": related,
	})
}

// search searches products across all categories
func (h *Handler) search(c *gin.Context) {
	products, err := h.catalog.Search(c.Request.Context(), c.Query("q"), c.Query("category"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

// addToCart adds a product to the session cart
func (h *Handler) addToCart(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	sessionID := ensureCartSession(c)
	product, err := h.cart.Add(c.Request.Context(), sessionID, productID)
	if err != nil {
		respondError(c, err)
		return
	}

	count, _ := h.cart.Count(c.Request.Context(), sessionID)
	c.JSON(http.StatusOK, gin.H{
		"message":    product.Title + " added to cart",
		"cart_count": count,
	})
}

// showCart returns the session's cart with its recomputed total
func (h *Handler) showCart(c *gin.Context) {
	sessionID := cartSession(c)

	lines, err := h.cart.List(c.Request.Context(), sessionID)
	if err != nil {
		respondError(c, err)
		return
	}

	total, err := h.cart.Total(c.Request.Context(), sessionID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": lines,
		"total": total,
	})
}

// updateCart sets a cart item's quantity from the form field; zero or
// less removes the row.
func (h *Handler) updateCart(c *gin.Context) {
	itemID, err := strconv.ParseInt(c.Param("item_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid cart item ID"})
		return
	}

	quantity, err := strconv.Atoi(c.PostForm("quantity"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid quantity"})
		return
	}

	if err := h.cart.SetQuantity(c.Request.Context(), cartSession(c), itemID, quantity); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart updated"})
}

// removeFromCart removes a cart item
func (h *Handler) removeFromCart(c *gin.Context) {
	itemID, err := strconv.ParseInt(c.Param("item_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid cart item ID"})
		return
	}

	if err := h.cart.Remove(c.Request.Context(), cartSession(c), itemID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item removed from cart"})
}

// showCheckout returns the cart ready for checkout
func (h *Handler) showCheckout(c *gin.Context) {
	sessionID := cartSession(c)

	lines, err := h.cart.List(c.Request.Context(), sessionID)
	if err != nil {
		respondError(c, err)
		return
	}
	if len(lines) == 0 {
		respondError(c, service.ErrEmptyCart)
		return
	}

	total, err := h.cart.Total(c.Request.Context(), sessionID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": lines,
		"total": total,
	})
}

// createPayPalOrder initiates checkout for the session cart
func (h *Handler) createPayPalOrder(c *gin.Context) {
	sessionID := cartSession(c)
	if sessionID == "" {
		respondError(c, service.ErrEmptyCart)
		return
	}

	result, err := h.checkout.Initiate(c.Request.Context(), sessionID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// capturePayPalOrder captures an approved provider order
func (h *Handler) capturePayPalOrder(c *gin.Context) {
	var req struct {
		OrderID string `json:"order_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Order ID required"})
		return
	}

	email := ""
	if user := currentUser(c); user != nil {
		email = user.Email
	}

	result, err := h.checkout.Capture(c.Request.Context(), req.OrderID, email)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// checkoutSuccess returns the completed order for the success page
func (h *Handler) checkoutSuccess(c *gin.Context) {
	orderNumber := c.Query("order_number")
	if orderNumber == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Order number required"})
		return
	}

	order, items, err := h.checkout.OrderByNumber(c.Request.Context(), orderNumber)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"order_number": order.OrderNumber,
		"total":        order.TotalAmount,
		"status":       order.Status,
		"items":        items,
	})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
