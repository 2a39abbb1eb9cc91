package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"digital-store/internal/models"
	"digital-store/internal/redisclient"
	"digital-store/internal/store"

	openai "github.com/sashabaranov/go-openai"
)

// In-memory fakes implementing the store-facing interfaces.

type fakeCatalog struct {
	products map[int64]*models.Product
}

func newFakeCatalog(products ...*models.Product) *fakeCatalog {
	f := &fakeCatalog{products: make(map[int64]*models.Product)}
	for _, p := range products {
		f.products[p.ID] = p
	}
	return f
}

func (f *fakeCatalog) GetProductByID(_ context.Context, id int64) (*models.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return p, nil
}

func (f *fakeCatalog) sorted(filter func(*models.Product) bool) []models.Product {
	var out []models.Product
	for _, p := range f.products {
		if filter(p) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out
}

func (f *fakeCatalog) ListByCategory(_ context.Context, category, search, sort string, page, perPage int) ([]models.Product, int, error) {
	all := f.sorted(func(p *models.Product) bool {
		if p.Category != category {
			return false
		}
		return search == "" || strings.Contains(strings.ToLower(p.Title), strings.ToLower(search))
	})
	total := len(all)
	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (f *fakeCatalog) GetRelatedProducts(_ context.Context, productID int64, category string, limit int) ([]models.Product, error) {
	all := f.sorted(func(p *models.Product) bool {
		return p.Category == category && p.ID != productID
	})
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (f *fakeCatalog) GetFeaturedByCategory(_ context.Context, category string, limit int) ([]models.Product, error) {
	all := f.sorted(func(p *models.Product) bool { return p.Category == category })
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (f *fakeCatalog) SearchProducts(_ context.Context, query, category string) ([]models.Product, error) {
	return f.sorted(func(p *models.Product) bool {
		if category != "" && p.Category != category {
			return false
		}
		return strings.Contains(strings.ToLower(p.Title), strings.ToLower(query))
	}), nil
}

type fakeCart struct {
	catalog *fakeCatalog
	items   map[int64]*models.CartItem
	nextID  int64
}

func newFakeCart(catalog *fakeCatalog) *fakeCart {
	return &fakeCart{catalog: catalog, items: make(map[int64]*models.CartItem), nextID: 1}
}

func (f *fakeCart) UpsertCartItem(_ context.Context, sessionID string, productID int64) error {
	for _, item := range f.items {
		if item.SessionID == sessionID && item.ProductID == productID {
			item.Quantity++
			return nil
		}
	}
	f.items[f.nextID] = &models.CartItem{
		ID:        f.nextID,
		SessionID: sessionID,
		ProductID: productID,
		Quantity:  1,
		CreatedAt: time.Now(),
	}
	f.nextID++
	return nil
}

func (f *fakeCart) GetCartItem(_ context.Context, itemID int64) (*models.CartItem, error) {
	item, ok := f.items[itemID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *item
	return &cp, nil
}

func (f *fakeCart) UpdateCartItemQuantity(_ context.Context, itemID int64, quantity int) error {
	if item, ok := f.items[itemID]; ok {
		item.Quantity = quantity
	}
	return nil
}

func (f *fakeCart) DeleteCartItem(_ context.Context, itemID int64) error {
	delete(f.items, itemID)
	return nil
}

func (f *fakeCart) GetCartLines(_ context.Context, sessionID string) ([]models.CartLine, error) {
	var ids []int64
	for id, item := range f.items {
		if item.SessionID == sessionID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var lines []models.CartLine
	for _, id := range ids {
		item := f.items[id]
		product := f.catalog.products[item.ProductID]
		lines = append(lines, models.CartLine{
			CartItem: *item,
			Title:    product.Title,
			Price:    product.Price,
		})
	}
	return lines, nil
}

func (f *fakeCart) CountCartItems(_ context.Context, sessionID string) (int, error) {
	count := 0
	for _, item := range f.items {
		if item.SessionID == sessionID {
			count++
		}
	}
	return count, nil
}

func (f *fakeCart) ClearCart(_ context.Context, sessionID string) error {
	for id, item := range f.items {
		if item.SessionID == sessionID {
			delete(f.items, id)
		}
	}
	return nil
}

type fakeLedger struct {
	cart   *fakeCart
	orders map[int64]*models.Order
	items  map[int64][]models.OrderItem
	nextID int64

	createErr error
}

func newFakeLedger(cart *fakeCart) *fakeLedger {
	return &fakeLedger{
		cart:   cart,
		orders: make(map[int64]*models.Order),
		items:  make(map[int64][]models.OrderItem),
		nextID: 1,
	}
}

func (f *fakeLedger) CreateOrderWithItems(_ context.Context, order *models.Order, items []models.OrderItem) error {
	if f.createErr != nil {
		return f.createErr
	}
	order.ID = f.nextID
	order.CreatedAt = time.Now()
	f.nextID++
	cp := *order
	f.orders[order.ID] = &cp
	for i := range items {
		items[i].OrderID = order.ID
	}
	f.items[order.ID] = append([]models.OrderItem(nil), items...)
	return nil
}

func (f *fakeLedger) GetOrderByProviderID(_ context.Context, paypalOrderID string) (*models.Order, error) {
	for _, o := range f.orders {
		if o.PayPalOrderID != nil && *o.PayPalOrderID == paypalOrderID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeLedger) GetOrderByNumber(_ context.Context, orderNumber string) (*models.Order, error) {
	for _, o := range f.orders {
		if o.OrderNumber == orderNumber {
			cp := *o
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeLedger) GetOrderItemsByOrderID(_ context.Context, orderID int64) ([]models.OrderItem, error) {
	return f.items[orderID], nil
}

func (f *fakeLedger) CompleteOrder(ctx context.Context, orderID int64, sessionID string) error {
	f.orders[orderID].Status = models.OrderStatusCompleted
	return f.cart.ClearCart(ctx, sessionID)
}

func (f *fakeLedger) MarkOrderFailed(_ context.Context, orderID int64) error {
	f.orders[orderID].Status = models.OrderStatusFailed
	return nil
}

type fakeGateway struct {
	authErr    error
	createErr  error
	captureErr error

	nextOrderID  string
	authCalls    int
	createCalls  int
	captureCalls int
	lastTotal    float64
}

func (f *fakeGateway) Authenticate(context.Context) (string, error) {
	f.authCalls++
	if f.authErr != nil {
		return "", f.authErr
	}
	return "test-token", nil
}

func (f *fakeGateway) CreateOrder(_ context.Context, _ string, total float64, _, _, _ string) (string, error) {
	f.createCalls++
	f.lastTotal = total
	if f.createErr != nil {
		return "", f.createErr
	}
	if f.nextOrderID == "" {
		return "PAYPAL-1", nil
	}
	return f.nextOrderID, nil
}

func (f *fakeGateway) CaptureOrder(context.Context, string, string) error {
	f.captureCalls++
	return f.captureErr
}

type fakeLocker struct {
	held map[string]bool
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: make(map[string]bool)}
}

func (f *fakeLocker) AcquireLock(_ context.Context, key string, _ time.Duration) (bool, error) {
	if f.held[key] {
		return false, nil
	}
	f.held[key] = true
	return true, nil
}

func (f *fakeLocker) ReleaseLock(_ context.Context, key string) error {
	delete(f.held, key)
	return nil
}

type fakeEvents struct {
	initiated []string
	completed []string
	failed    []string
}

func (f *fakeEvents) PublishCheckoutInitiated(_ context.Context, orderNumber, _ string, _ float64, _ int) error {
	f.initiated = append(f.initiated, orderNumber)
	return nil
}

func (f *fakeEvents) PublishOrderCompleted(_ context.Context, orderNumber, _ string, _ float64, _ string) error {
	f.completed = append(f.completed, orderNumber)
	return nil
}

func (f *fakeEvents) PublishOrderFailed(_ context.Context, orderNumber, _, _ string) error {
	f.failed = append(f.failed, orderNumber)
	return nil
}

type fakeMailer struct {
	enabled bool
	sendErr error
	sent    []string
}

func (f *fakeMailer) Enabled() bool { return f.enabled }

func (f *fakeMailer) Send(to, _, _ string) error {
	if !f.enabled {
		return ErrValidation
	}
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, to)
	return nil
}

type fakeUsers struct {
	users  map[int64]*models.User
	nextID int64
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: make(map[int64]*models.User), nextID: 1}
}

func (f *fakeUsers) CreateUser(_ context.Context, user *models.User) error {
	user.ID = f.nextID
	user.CreatedAt = time.Now()
	f.nextID++
	cp := *user
	f.users[user.ID] = &cp
	return nil
}

func (f *fakeUsers) find(match func(*models.User) bool) (*models.User, error) {
	for _, u := range f.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeUsers) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.ID == id })
}

func (f *fakeUsers) GetUserByLogin(_ context.Context, login string) (*models.User, error) {
	return f.find(func(u *models.User) bool {
		return u.Username == login || u.Email == strings.ToLower(login)
	})
}

func (f *fakeUsers) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.Username == username })
}

func (f *fakeUsers) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.Email == email })
}

func (f *fakeUsers) GetUserByConfirmationToken(_ context.Context, token string) (*models.User, error) {
	return f.find(func(u *models.User) bool {
		return u.ConfirmationToken != nil && *u.ConfirmationToken == token
	})
}

func (f *fakeUsers) GetUserByResetToken(_ context.Context, token string) (*models.User, error) {
	return f.find(func(u *models.User) bool {
		return u.ResetToken != nil && *u.ResetToken == token
	})
}

func (f *fakeUsers) ConfirmUser(_ context.Context, userID int64) error {
	u := f.users[userID]
	u.IsConfirmed = true
	u.ConfirmationToken = nil
	return nil
}

func (f *fakeUsers) SetConfirmationToken(_ context.Context, userID int64, token string) error {
	f.users[userID].ConfirmationToken = &token
	return nil
}

func (f *fakeUsers) SetResetToken(_ context.Context, userID int64, token string, expiry time.Time) error {
	u := f.users[userID]
	u.ResetToken = &token
	u.ResetTokenExpiry = &expiry
	return nil
}

func (f *fakeUsers) UpdatePassword(_ context.Context, userID int64, passwordHash string) error {
	u := f.users[userID]
	u.PasswordHash = passwordHash
	u.ResetToken = nil
	u.ResetTokenExpiry = nil
	return nil
}

type fakeSessions struct {
	sessions map[string]int64
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{sessions: make(map[string]int64)}
}

func (f *fakeSessions) SetLoginSession(_ context.Context, token string, userID int64, _ time.Duration) error {
	f.sessions[token] = userID
	return nil
}

func (f *fakeSessions) GetLoginSession(_ context.Context, token string) (int64, bool, error) {
	userID, ok := f.sessions[token]
	return userID, ok, nil
}

func (f *fakeSessions) DeleteLoginSession(_ context.Context, token string) error {
	delete(f.sessions, token)
	return nil
}

type fakeChatHistory struct {
	history map[string][]redisclient.ChatMessage
}

func newFakeChatHistory() *fakeChatHistory {
	return &fakeChatHistory{history: make(map[string][]redisclient.ChatMessage)}
}

func (f *fakeChatHistory) AppendChatHistory(_ context.Context, sessionID string, maxLen int, msgs ...redisclient.ChatMessage) error {
	h := append(f.history[sessionID], msgs...)
	if len(h) > maxLen {
		h = h[len(h)-maxLen:]
	}
	f.history[sessionID] = h
	return nil
}

func (f *fakeChatHistory) GetChatHistory(_ context.Context, sessionID string) ([]redisclient.ChatMessage, error) {
	return f.history[sessionID], nil
}

func (f *fakeChatHistory) ClearChatHistory(_ context.Context, sessionID string) error {
	delete(f.history, sessionID)
	return nil
}

type fakeCompletion struct {
	replies  []string
	err      error
	requests []openai.ChatCompletionRequest
}

func (f *fakeCompletion) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	reply := "ok"
	if len(f.replies) > 0 {
		reply = f.replies[0]
		f.replies = f.replies[1:]
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: reply}},
		},
	}, nil
}
