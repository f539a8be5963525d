package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/lalithlochan/solebox/internal/achievement"
	"github.com/lalithlochan/solebox/internal/apperr"
	"github.com/lalithlochan/solebox/internal/auth"
	"github.com/lalithlochan/solebox/internal/db"
	"github.com/lalithlochan/solebox/internal/pricing"
	"github.com/lalithlochan/solebox/internal/redis"
	"github.com/lalithlochan/solebox/internal/sqs"
)

var ErrDatabaseError = errors.New("database error")

// MockPrices is a fake price refresher
type MockPrices struct {
	quote *pricing.Quote
	err   error
	calls int
}

func (m *MockPrices) Refresh(ctx context.Context, userID, itemID uuid.UUID) (*pricing.Quote, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.quote, nil
}

// MockAchievements is a fake achievement checker
type MockAchievements struct {
	unlocked   []string
	list       []achievement.Unlocked
	shouldFail bool
	checked    []uuid.UUID
}

func (m *MockAchievements) Check(ctx context.Context, userID uuid.UUID) ([]string, error) {
	m.checked = append(m.checked, userID)
	if m.shouldFail {
		return nil, ErrDatabaseError
	}
	return m.unlocked, nil
}

func (m *MockAchievements) List(ctx context.Context, userID uuid.UUID) ([]achievement.Unlocked, error) {
	if m.shouldFail {
		return nil, ErrDatabaseError
	}
	return m.list, nil
}

// MockNotifications is a fake notification service keyed by ID
type MockNotifications struct {
	notifications map[uuid.UUID]*db.Notification
	swept         int64
	shouldFail    bool

	lastLimit  int
	lastOffset int
	lastUnread bool
}

func NewMockNotifications() *MockNotifications {
	return &MockNotifications{notifications: make(map[uuid.UUID]*db.Notification)}
}

func (m *MockNotifications) add(userID uuid.UUID, read bool) *db.Notification {
	n := &db.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      "price_drop",
		Title:     "Price drop",
		Severity:  db.SeveritySuccess,
		IsRead:    read,
		CreatedAt: time.Now(),
	}
	m.notifications[n.ID] = n
	return n
}

func (m *MockNotifications) Sweep(ctx context.Context) (int64, error) {
	if m.shouldFail {
		return 0, ErrDatabaseError
	}
	return m.swept, nil
}

func (m *MockNotifications) MarkRead(ctx context.Context, userID, id uuid.UUID) (*db.Notification, error) {
	if m.shouldFail {
		return nil, ErrDatabaseError
	}
	n, ok := m.notifications[id]
	if !ok || n.UserID != userID {
		return nil, apperr.ErrNotFound
	}
	if !n.IsRead {
		now := time.Now()
		n.IsRead = true
		n.ReadAt = &now
	}
	return n, nil
}

func (m *MockNotifications) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	if m.shouldFail {
		return 0, ErrDatabaseError
	}
	var marked int64
	for _, n := range m.notifications {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			marked++
		}
	}
	return marked, nil
}

func (m *MockNotifications) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]*db.Notification, error) {
	m.lastLimit, m.lastOffset, m.lastUnread = limit, offset, unreadOnly
	if m.shouldFail {
		return nil, ErrDatabaseError
	}
	result := []*db.Notification{}
	for _, n := range m.notifications {
		if n.UserID == userID && (!unreadOnly || !n.IsRead) {
			result = append(result, n)
		}
	}
	return result, nil
}

func (m *MockNotifications) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	if m.shouldFail {
		return 0, ErrDatabaseError
	}
	count := 0
	for _, n := range m.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (m *MockNotifications) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if m.shouldFail {
		return ErrDatabaseError
	}
	n, ok := m.notifications[id]
	if !ok || n.UserID != userID {
		return apperr.ErrNotFound
	}
	delete(m.notifications, id)
	return nil
}

type fakeQueue struct {
	sent []string
	err  error
}

func (f *fakeQueue) SendMessage(ctx context.Context, params *awssqs.SendMessageInput, optFns ...func(*awssqs.Options)) (*awssqs.SendMessageOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, aws.ToString(params.MessageBody))
	return &awssqs.SendMessageOutput{MessageId: aws.String("msg-1")}, nil
}

func (f *fakeQueue) ReceiveMessage(ctx context.Context, params *awssqs.ReceiveMessageInput, optFns ...func(*awssqs.Options)) (*awssqs.ReceiveMessageOutput, error) {
	return &awssqs.ReceiveMessageOutput{}, nil
}

func (f *fakeQueue) DeleteMessage(ctx context.Context, params *awssqs.DeleteMessageInput, optFns ...func(*awssqs.Options)) (*awssqs.DeleteMessageOutput, error) {
	return &awssqs.DeleteMessageOutput{}, nil
}

func newTestIdempotency(t *testing.T) *redis.IdempotencyService {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return redis.NewIdempotencyService(redis.NewFromClient(rdb, zap.NewNop()), zap.NewNop())
}

// withRoute attaches the authenticated user and chi URL params to req.
func withRoute(req *http.Request, userID uuid.UUID, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	if userID != uuid.Nil {
		ctx = auth.WithUserID(ctx, userID)
	}
	return req.WithContext(ctx)
}

func floatPtr(v float64) *float64 { return &v }

func TestRefreshPrice(t *testing.T) {
	userID := uuid.New()
	itemID := uuid.New()
	checked := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		itemID         string
		prices         *MockPrices
		expectedStatus int
		checkResponse  func(t *testing.T, body map[string]interface{})
	}{
		{
			name:   "success with drop",
			itemID: itemID.String(),
			prices: &MockPrices{quote: &pricing.Quote{
				ItemID:        itemID,
				Price:         89.99,
				RetailPrice:   floatPtr(120),
				StoreName:     "Nike",
				PreviousPrice: floatPtr(110),
				CheckedAt:     checked,
			}},
			expectedStatus: http.StatusOK,
			checkResponse: func(t *testing.T, body map[string]interface{}) {
				if body["success"] != true {
					t.Errorf("expected success true, got %v", body["success"])
				}
				if body["price"] != 89.99 {
					t.Errorf("expected price 89.99, got %v", body["price"])
				}
				if body["storeName"] != "Nike" {
					t.Errorf("expected storeName Nike, got %v", body["storeName"])
				}
				if msg, _ := body["message"].(string); !strings.Contains(msg, "dropped") {
					t.Errorf("expected drop message, got %q", msg)
				}
			},
		},
		{
			name:   "unsupported retailer",
			itemID: itemID.String(),
			prices: &MockPrices{err: &apperr.UnsupportedSourceError{
				Category: apperr.CategoryUnsupportedRetailer,
				Host:     "example.com",
			}},
			expectedStatus: http.StatusUnprocessableEntity,
			checkResponse: func(t *testing.T, body map[string]interface{}) {
				if body["success"] != false {
					t.Errorf("expected success false, got %v", body["success"])
				}
				if body["errorCategory"] != "unsupported_retailer" {
					t.Errorf("expected unsupported_retailer, got %v", body["errorCategory"])
				}
				if body["retryable"] != false {
					t.Errorf("expected retryable false, got %v", body["retryable"])
				}
			},
		},
		{
			name:   "layout changed",
			itemID: itemID.String(),
			prices: &MockPrices{err: &apperr.UnsupportedSourceError{
				Category: apperr.CategoryLayoutChanged,
				Host:     "nike.com",
			}},
			expectedStatus: http.StatusUnprocessableEntity,
			checkResponse: func(t *testing.T, body map[string]interface{}) {
				if body["errorCategory"] != "layout_changed" {
					t.Errorf("expected layout_changed, got %v", body["errorCategory"])
				}
			},
		},
		{
			name:           "retailer unavailable",
			itemID:         itemID.String(),
			prices:         &MockPrices{err: &apperr.TransientFetchError{Host: "goat.com", Status: 503}},
			expectedStatus: http.StatusBadGateway,
			checkResponse: func(t *testing.T, body map[string]interface{}) {
				if body["errorCategory"] != "fetch_failed" {
					t.Errorf("expected fetch_failed, got %v", body["errorCategory"])
				}
				if body["retryable"] != true {
					t.Errorf("expected retryable true, got %v", body["retryable"])
				}
			},
		},
		{
			name:           "not owned",
			itemID:         itemID.String(),
			prices:         &MockPrices{err: apperr.ErrNotFound},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "storage failure",
			itemID:         itemID.String(),
			prices:         &MockPrices{err: ErrDatabaseError},
			expectedStatus: http.StatusInternalServerError,
			checkResponse: func(t *testing.T, body map[string]interface{}) {
				if body["type"] != "internal_error" {
					t.Errorf("expected internal_error, got %v", body["type"])
				}
				if _, ok := body["detail"]; ok {
					t.Error("internal detail must not leak")
				}
			},
		},
		{
			name:           "invalid id",
			itemID:         "not-a-uuid",
			prices:         &MockPrices{},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHandler(zap.NewNop(), Services{Prices: tt.prices})

			req := httptest.NewRequest("POST", "/v1/items/"+tt.itemID+"/refresh-price", nil)
			req = withRoute(req, userID, map[string]string{"id": tt.itemID})
			rec := httptest.NewRecorder()

			handler.RefreshPrice(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.expectedStatus, rec.Code, rec.Body.String())
			}

			if tt.checkResponse != nil {
				var body map[string]interface{}
				if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
					t.Fatalf("failed to decode response: %v", err)
				}
				tt.checkResponse(t, body)
			}
		})
	}
}

func TestRefreshPrice_Unauthenticated(t *testing.T) {
	prices := &MockPrices{}
	handler := NewHandler(zap.NewNop(), Services{Prices: prices})

	id := uuid.New().String()
	req := withRoute(httptest.NewRequest("POST", "/v1/items/"+id+"/refresh-price", nil), uuid.Nil, map[string]string{"id": id})
	rec := httptest.NewRecorder()

	handler.RefreshPrice(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
	if prices.calls != 0 {
		t.Error("refresh must not run without a user")
	}
}

func TestRefreshPrice_IdempotentReplay(t *testing.T) {
	userID := uuid.New()
	itemID := uuid.New().String()
	prices := &MockPrices{quote: &pricing.Quote{Price: 150, StoreName: "GOAT", CheckedAt: time.Now()}}
	handler := NewHandler(zap.NewNop(), Services{Prices: prices, Idempotency: newTestIdempotency(t)})

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/v1/items/"+itemID+"/refresh-price", nil)
		req.Header.Set("Idempotency-Key", "refresh-1")
		req = withRoute(req, userID, map[string]string{"id": itemID})
		rec := httptest.NewRecorder()
		handler.RefreshPrice(rec, req)
		return rec
	}

	first := send()
	second := send()

	if first.Code != http.StatusOK || second.Code != http.StatusOK {
		t.Fatalf("expected 200 twice, got %d and %d", first.Code, second.Code)
	}
	if prices.calls != 1 {
		t.Errorf("expected one refresh, got %d", prices.calls)
	}
	if second.Header().Get("X-Idempotency-Replayed") != "true" {
		t.Error("expected replay header on second response")
	}
	if !bytes.Equal(bytes.TrimSpace(first.Body.Bytes()), bytes.TrimSpace(second.Body.Bytes())) {
		t.Errorf("replayed body differs:\n%s\n%s", first.Body.String(), second.Body.String())
	}
}

func TestRefreshPrice_TransientFailureNotCached(t *testing.T) {
	userID := uuid.New()
	itemID := uuid.New().String()
	prices := &MockPrices{err: &apperr.TransientFetchError{Host: "nike.com", Status: 500}}
	handler := NewHandler(zap.NewNop(), Services{Prices: prices, Idempotency: newTestIdempotency(t)})

	send := func() int {
		req := httptest.NewRequest("POST", "/v1/items/"+itemID+"/refresh-price", nil)
		req.Header.Set("Idempotency-Key", "retry-me")
		req = withRoute(req, userID, map[string]string{"id": itemID})
		rec := httptest.NewRecorder()
		handler.RefreshPrice(rec, req)
		return rec.Code
	}

	if code := send(); code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", code)
	}

	prices.err = nil
	prices.quote = &pricing.Quote{Price: 99, StoreName: "Nike", CheckedAt: time.Now()}

	if code := send(); code != http.StatusOK {
		t.Errorf("expected retry with same key to run, got %d", code)
	}
	if prices.calls != 2 {
		t.Errorf("expected 2 refreshes, got %d", prices.calls)
	}
}

func TestCheckAchievements(t *testing.T) {
	userID := uuid.New()

	tests := []struct {
		name           string
		achievements   *MockAchievements
		expectedStatus int
		expectedKeys   int
	}{
		{"new unlocks", &MockAchievements{unlocked: []string{"first_item", "first_wear"}}, http.StatusOK, 2},
		{"nothing new", &MockAchievements{}, http.StatusOK, 0},
		{"store failure", &MockAchievements{shouldFail: true}, http.StatusInternalServerError, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHandler(zap.NewNop(), Services{Achievements: tt.achievements})

			req := withRoute(httptest.NewRequest("POST", "/v1/achievements/check", nil), userID, nil)
			rec := httptest.NewRecorder()

			handler.CheckAchievements(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d", tt.expectedStatus, rec.Code)
			}
			if tt.expectedKeys < 0 {
				return
			}

			var body struct {
				Success  bool     `json:"success"`
				Unlocked []string `json:"unlocked"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if !body.Success {
				t.Error("expected success true")
			}
			if body.Unlocked == nil || len(body.Unlocked) != tt.expectedKeys {
				t.Errorf("expected %d keys, got %v", tt.expectedKeys, body.Unlocked)
			}
		})
	}
}

func TestCheckAchievements_Async(t *testing.T) {
	userID := uuid.New()
	queue := &fakeQueue{}
	achievements := &MockAchievements{}
	handler := NewHandler(zap.NewNop(), Services{
		Achievements: achievements,
		Activity:     sqs.NewProducerWithClient(queue, "https://sqs.local/activity", zap.NewNop()),
	})

	req := withRoute(httptest.NewRequest("POST", "/v1/achievements/check?async=true", nil), userID, nil)
	rec := httptest.NewRecorder()

	handler.CheckAchievements(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if len(queue.sent) != 1 {
		t.Fatalf("expected 1 queued message, got %d", len(queue.sent))
	}
	if !strings.Contains(queue.sent[0], userID.String()) {
		t.Errorf("queued message missing user id: %s", queue.sent[0])
	}
	if len(achievements.checked) != 0 {
		t.Error("checker must not run inline for async requests")
	}
}

func TestListAchievements(t *testing.T) {
	rule, _ := achievement.Lookup("first_item")
	handler := NewHandler(zap.NewNop(), Services{Achievements: &MockAchievements{
		list: []achievement.Unlocked{{Rule: rule, UnlockedAt: time.Now()}},
	}})

	req := withRoute(httptest.NewRequest("GET", "/v1/achievements", nil), uuid.New(), nil)
	rec := httptest.NewRecorder()

	handler.ListAchievements(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["count"] != float64(1) {
		t.Errorf("expected count 1, got %v", body["count"])
	}
}

func TestSweepNotifications(t *testing.T) {
	tests := []struct {
		name           string
		shouldFail     bool
		swept          int64
		expectedStatus int
		expectedBody   map[string]interface{}
	}{
		{
			name:           "deletes expired",
			swept:          3,
			expectedStatus: http.StatusOK,
			expectedBody:   map[string]interface{}{"success": true, "deletedCount": float64(3)},
		},
		{
			name:           "nothing expired",
			expectedStatus: http.StatusOK,
			expectedBody:   map[string]interface{}{"success": true, "deletedCount": float64(0)},
		},
		{
			name:           "database failure",
			shouldFail:     true,
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   map[string]interface{}{"success": false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notifications := NewMockNotifications()
			notifications.swept = tt.swept
			notifications.shouldFail = tt.shouldFail
			handler := NewHandler(zap.NewNop(), Services{Notifications: notifications})

			req := httptest.NewRequest("POST", "/internal/notifications/sweep", nil)
			rec := httptest.NewRecorder()

			handler.SweepNotifications(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d", tt.expectedStatus, rec.Code)
			}

			var body map[string]interface{}
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			for k, want := range tt.expectedBody {
				if body[k] != want {
					t.Errorf("%s: expected %v, got %v", k, want, body[k])
				}
			}
			if _, ok := body["message"]; !ok {
				t.Error("expected message field")
			}
		})
	}
}

func TestMarkNotificationRead(t *testing.T) {
	owner := uuid.New()
	notifications := NewMockNotifications()
	unread := notifications.add(owner, false)
	handler := NewHandler(zap.NewNop(), Services{Notifications: notifications})

	tests := []struct {
		name           string
		userID         uuid.UUID
		id             string
		expectedStatus int
	}{
		{"owner marks read", owner, unread.ID.String(), http.StatusOK},
		{"already read stays ok", owner, unread.ID.String(), http.StatusOK},
		{"other user", uuid.New(), unread.ID.String(), http.StatusNotFound},
		{"missing", owner, uuid.New().String(), http.StatusNotFound},
		{"invalid id", owner, "bad", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("PATCH", "/v1/notifications/"+tt.id+"/read", nil)
			req = withRoute(req, tt.userID, map[string]string{"id": tt.id})
			rec := httptest.NewRecorder()

			handler.MarkNotificationRead(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d", tt.expectedStatus, rec.Code)
			}
			if rec.Code == http.StatusOK {
				var n db.Notification
				if err := json.NewDecoder(rec.Body).Decode(&n); err != nil {
					t.Fatalf("failed to decode response: %v", err)
				}
				if !n.IsRead || n.ReadAt == nil {
					t.Errorf("expected read record, got %+v", n)
				}
			}
		})
	}
}

func TestMarkAllNotificationsRead(t *testing.T) {
	owner := uuid.New()
	notifications := NewMockNotifications()
	notifications.add(owner, false)
	notifications.add(owner, false)
	notifications.add(owner, true)
	notifications.add(uuid.New(), false)
	handler := NewHandler(zap.NewNop(), Services{Notifications: notifications})

	req := withRoute(httptest.NewRequest("POST", "/v1/notifications/read-all", nil), owner, nil)
	rec := httptest.NewRecorder()

	handler.MarkAllNotificationsRead(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["success"] != true || body["markedCount"] != float64(2) {
		t.Errorf("expected success with markedCount 2, got %v", body)
	}
}

func TestListNotifications(t *testing.T) {
	owner := uuid.New()

	tests := []struct {
		name           string
		query          string
		shouldFail     bool
		expectedStatus int
		expectedLimit  int
		expectedOffset int
		expectedUnread bool
	}{
		{"defaults", "", false, http.StatusOK, 20, 0, false},
		{"custom page", "?limit=5&offset=10", false, http.StatusOK, 5, 10, false},
		{"limit capped", "?limit=1000", false, http.StatusOK, 100, 0, false},
		{"unread only", "?unread=true", false, http.StatusOK, 20, 0, true},
		{"bad values fall back", "?limit=abc&offset=-3", false, http.StatusOK, 20, 0, false},
		{"database error", "", true, http.StatusInternalServerError, 20, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notifications := NewMockNotifications()
			notifications.add(owner, false)
			notifications.shouldFail = tt.shouldFail
			handler := NewHandler(zap.NewNop(), Services{Notifications: notifications})

			req := withRoute(httptest.NewRequest("GET", "/v1/notifications"+tt.query, nil), owner, nil)
			rec := httptest.NewRecorder()

			handler.ListNotifications(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d", tt.expectedStatus, rec.Code)
			}
			if notifications.lastLimit != tt.expectedLimit || notifications.lastOffset != tt.expectedOffset {
				t.Errorf("expected limit=%d offset=%d, got limit=%d offset=%d",
					tt.expectedLimit, tt.expectedOffset, notifications.lastLimit, notifications.lastOffset)
			}
			if notifications.lastUnread != tt.expectedUnread {
				t.Errorf("expected unread=%v", tt.expectedUnread)
			}
		})
	}
}

func TestUnreadCount(t *testing.T) {
	owner := uuid.New()
	notifications := NewMockNotifications()
	notifications.add(owner, false)
	notifications.add(owner, true)
	handler := NewHandler(zap.NewNop(), Services{Notifications: notifications})

	req := withRoute(httptest.NewRequest("GET", "/v1/notifications/unread-count", nil), owner, nil)
	rec := httptest.NewRecorder()

	handler.UnreadCount(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]int
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["count"] != 1 {
		t.Errorf("expected count 1, got %d", body["count"])
	}
}

func TestDeleteNotification(t *testing.T) {
	owner := uuid.New()
	notifications := NewMockNotifications()
	n := notifications.add(owner, false)
	handler := NewHandler(zap.NewNop(), Services{Notifications: notifications})

	del := func(userID uuid.UUID, id string) int {
		req := withRoute(httptest.NewRequest("DELETE", "/v1/notifications/"+id, nil), userID, map[string]string{"id": id})
		rec := httptest.NewRecorder()
		handler.DeleteNotification(rec, req)
		return rec.Code
	}

	if code := del(uuid.New(), n.ID.String()); code != http.StatusNotFound {
		t.Errorf("expected 404 for other user, got %d", code)
	}
	if code := del(owner, n.ID.String()); code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", code)
	}
	if code := del(owner, n.ID.String()); code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", code)
	}
}

func signToken(t *testing.T, secret string, userID uuid.UUID) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID.String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func TestRouter(t *testing.T) {
	const secret = "test-secret"
	verifier, err := auth.NewVerifier(secret)
	if err != nil {
		t.Fatalf("failed to create verifier: %v", err)
	}

	owner := uuid.New()
	notifications := NewMockNotifications()
	notifications.add(owner, false)
	notifications.swept = 2

	handler := NewHandler(zap.NewNop(), Services{
		Notifications: notifications,
		Achievements:  &MockAchievements{},
		Prices:        &MockPrices{},
	})
	router := NewRouter(handler, RouterConfig{
		Verifier:   verifier,
		ServiceKey: "svc-key",
		Logger:     zap.NewNop(),
	})

	tests := []struct {
		name           string
		method         string
		path           string
		headers        map[string]string
		expectedStatus int
	}{
		{"health", "GET", "/health", nil, http.StatusOK},
		{"no token", "GET", "/v1/notifications", nil, http.StatusUnauthorized},
		{"bad token", "GET", "/v1/notifications", map[string]string{"Authorization": "Bearer nope"}, http.StatusUnauthorized},
		{"valid token", "GET", "/v1/notifications/unread-count", map[string]string{"Authorization": "Bearer " + signToken(t, secret, owner)}, http.StatusOK},
		{"sweep without key", "POST", "/internal/notifications/sweep", nil, http.StatusUnauthorized},
		{"sweep with user token", "POST", "/internal/notifications/sweep", map[string]string{"Authorization": "Bearer " + signToken(t, secret, owner)}, http.StatusUnauthorized},
		{"sweep with key", "POST", "/internal/notifications/sweep", map[string]string{"X-Service-Key": "svc-key"}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d: %s", tt.expectedStatus, rec.Code, rec.Body.String())
			}
		})
	}
}
