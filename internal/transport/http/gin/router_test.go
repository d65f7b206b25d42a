package httpgin

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/lessonbook/internal/domain"
	"github.com/kirinyoku/lessonbook/internal/repository/memory"
	"github.com/kirinyoku/lessonbook/internal/service"
	"github.com/kirinyoku/lessonbook/internal/service/catalog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testAdminToken = "admin-secret"

func newTestRouter(t *testing.T, lessons ...domain.Lesson) (*gin.Engine, *memory.Store) {
	t.Helper()
	return newTestRouterWithConfig(t, RouterConfig{AdminToken: testAdminToken}, lessons...)
}

func newTestRouterWithConfig(t *testing.T, cfg RouterConfig, lessons ...domain.Lesson) (*gin.Engine, *memory.Store) {
	t.Helper()

	store := memory.NewStore(lessons...)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svcs := service.NewServices(store, service.Deps{}, logger, service.Config{
		Catalog: catalog.Config{PublicBaseURL: "http://localhost:3000"},
	})

	return NewRouter(svcs, nil, logger, cfg), store
}

func do(r http.Handler, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	var buf io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		buf = bytes.NewBufferString(b)
	default:
		raw, _ := json.Marshal(b)
		buf = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func validOrder(items ...map[string]any) map[string]any {
	return map[string]any{
		"firstName":   "Ada",
		"lastName":    "Lovelace",
		"address":     "12 Analytical Way",
		"city":        "London",
		"state":       "LDN",
		"zip":         12345,
		"shipAsGift":  false,
		"addressType": "Office",
		"lessonItems": items,
		"totalSpent":  120.5,
	}
}

func TestCartAddAndRemove(t *testing.T) {
	r, _ := newTestRouter(t, domain.Lesson{ID: 5, Subject: "Piano", Spaces: 3})

	w := do(r, http.MethodPost, "/lessons/cart/add", CartRequest{LessonID: 5, Quantity: 2})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[LessonMessageResponse](t, w)
	assert.Equal(t, "Item added to cart", resp.Message)
	assert.Equal(t, 1, resp.Lesson.Spaces)

	w = do(r, http.MethodPost, "/lessons/cart/add", CartRequest{LessonID: 5, Quantity: 2})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Not enough spaces available", decode[ErrorResponse](t, w).Error)

	w = do(r, http.MethodPost, "/lessons/cart/remove", CartRequest{LessonID: 5, Quantity: 2})
	require.Equal(t, http.StatusOK, w.Code)
	resp = decode[LessonMessageResponse](t, w)
	assert.Equal(t, "Item removed from cart", resp.Message)
	assert.Equal(t, 3, resp.Lesson.Spaces)

	w = do(r, http.MethodPost, "/lessons/cart/add", CartRequest{LessonID: 6, Quantity: 1})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Lesson not found", decode[ErrorResponse](t, w).Error)

	w = do(r, http.MethodPost, "/lessons/cart/remove", CartRequest{LessonID: 6, Quantity: 1})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCartRemoveRejectsOverflow(t *testing.T) {
	r, _ := newTestRouter(t, domain.Lesson{ID: 5, Subject: "Piano", Spaces: 1})

	for _, body := range []string{
		`{"lessonId":5,"quantity":9223372036854775807}`,
		`{"lessonId":5,"quantity":-9223372036854775808}`,
		`{"lessonId":5,"quantity":2147483648}`,
	} {
		w := do(r, http.MethodPost, "/lessons/cart/remove", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}

	// room for one more space only
	w := do(r, http.MethodPost, "/lessons/cart/remove", `{"lessonId":5,"quantity":2147483647}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Spaces must not exceed 2147483647", decode[ErrorResponse](t, w).Error)

	w = do(r, http.MethodGet, "/lessons", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[[]domain.Lesson](t, w)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Spaces)

	w = do(r, http.MethodPost, "/lessons/cart/remove", `{"lessonId":5,"quantity":2147483646}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, domain.MaxSpaces, decode[LessonMessageResponse](t, w).Lesson.Spaces)
}

func TestLessonPriceIsJSONNumber(t *testing.T) {
	r, _ := newTestRouter(t, domain.Lesson{ID: 1, Subject: "Piano", Price: decimal.RequireFromString("80.50"), Spaces: 5})

	w := do(r, http.MethodGet, "/lessons", nil)
	require.Equal(t, http.StatusOK, w.Code)

	got := decode[[]map[string]any](t, w)
	require.Len(t, got, 1)
	assert.Equal(t, 80.5, got[0]["price"])
	assert.Contains(t, w.Body.String(), `"price":80.5`)
}

func TestSearchLessons(t *testing.T) {
	r, _ := newTestRouter(t,
		domain.Lesson{ID: 1, Subject: "Piano", ImagePath: "/static/piano.png", Spaces: 5},
		domain.Lesson{ID: 2, Subject: "Chess", ImagePath: "/static/chess.png", Spaces: 5},
	)

	w := do(r, http.MethodGet, "/lessons/search?query=pian", nil)
	require.Equal(t, http.StatusOK, w.Code)

	got := decode[[]map[string]any](t, w)
	require.Len(t, got, 1)
	assert.Equal(t, "Piano", got[0]["subject"])
	assert.Equal(t, "http://localhost:3000/static/piano.png", got[0]["imagePath"])
	assert.NotContains(t, got[0], "_id")
}

func TestListLessonsETag(t *testing.T) {
	r, _ := newTestRouter(t, domain.Lesson{ID: 1, Subject: "Piano", Spaces: 5})

	w := do(r, http.MethodGet, "/lessons", nil)
	require.Equal(t, http.StatusOK, w.Code)
	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)
	assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))

	got := decode[[]map[string]any](t, w)
	require.Len(t, got, 1)
	assert.Contains(t, got[0], "_id")

	w = do(r, http.MethodGet, "/lessons", nil, "If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, w.Code)

	do(r, http.MethodPost, "/lessons/cart/add", CartRequest{LessonID: 1, Quantity: 1})

	w = do(r, http.MethodGet, "/lessons", nil, "If-None-Match", etag)
	assert.Equal(t, http.StatusOK, w.Code, "a capacity change yields a new tag")
}

func TestCartLessons(t *testing.T) {
	r, _ := newTestRouter(t,
		domain.Lesson{ID: 1, Subject: "Piano", Spaces: 5},
		domain.Lesson{ID: 2, Subject: "Chess", Spaces: 5},
	)

	w := do(r, http.MethodPost, "/lessons/cart/lessons", map[string]any{"lessonIds": []int{2}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]domain.Lesson](t, w), 1)

	w = do(r, http.MethodPost, "/lessons/cart/lessons", map[string]any{"lessonIds": []int{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid lessonIds. Must be a non-empty array.", decode[ErrorResponse](t, w).Error)

	w = do(r, http.MethodPost, "/lessons/cart/lessons", map[string]any{"lessonIds": "1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/lessons/cart/lessons", map[string]any{"lessonIds": []int{9}})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "No lessons found for the provided IDs.", decode[ErrorResponse](t, w).Error)
}

func TestUpdateLesson(t *testing.T) {
	r, _ := newTestRouter(t, domain.Lesson{ID: 1, Subject: "Piano", Location: "Hendon", Spaces: 5})

	w := do(r, http.MethodPut, "/lessons/update/1", map[string]any{"location": "Colindale", "spaces": 7})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[LessonMessageResponse](t, w)
	assert.Equal(t, "Lesson updated successfully", resp.Message)
	assert.Equal(t, "Colindale", resp.Lesson.Location)
	assert.Equal(t, "Piano", resp.Lesson.Subject)
	assert.Equal(t, 7, resp.Lesson.Spaces)

	w = do(r, http.MethodPut, "/lessons/update/42", map[string]any{"location": "Colindale"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Lesson with ID 42 not found", decode[ErrorResponse](t, w).Error)

	w = do(r, http.MethodPut, "/lessons/update/1", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPut, "/lessons/update/abc", map[string]any{"location": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPlaceOrder(t *testing.T) {
	r, store := newTestRouter(t, domain.Lesson{ID: 1, Subject: "Piano", Spaces: 5})

	w := do(r, http.MethodPost, "/orders", validOrder(map[string]any{"id": 1, "spaces": 5}))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resp := decode[PlaceOrderResponse](t, w)
	assert.Equal(t, "Order placed successfully", resp.Message)
	assert.NotEmpty(t, resp.OrderID)

	w = do(r, http.MethodGet, "/orders/"+resp.OrderID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	order := decode[domain.Order](t, w)
	assert.Equal(t, domain.AddressOffice, order.AddressType)
	assert.Equal(t, 12345, order.Zip)

	w = do(r, http.MethodPost, "/orders", validOrder(map[string]any{"id": 1, "spaces": 1}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Not enough spaces available for lesson Piano", decode[ErrorResponse](t, w).Error)

	w = do(r, http.MethodPost, "/orders", validOrder(map[string]any{"id": 7, "spaces": 1}))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Lesson with id 7 not found", decode[ErrorResponse](t, w).Error)

	assert.Equal(t, 1, store.OrderCount())
}

func TestPlaceOrderAcceptsDecimalIntegers(t *testing.T) {
	r, store := newTestRouter(t, domain.Lesson{ID: 1, Subject: "Piano", Spaces: 5})

	body := `{"firstName":"Ada","lastName":"Lovelace","address":"12 Analytical Way","city":"London",` +
		`"state":"LDN","zip":12345.0,"shipAsGift":false,"addressType":"Home",` +
		`"lessonItems":[{"id":1.0,"spaces":2.0}],"totalSpent":120.50}`

	w := do(r, http.MethodPost, "/orders", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, 1, store.OrderCount())

	l, err := store.Lessons().GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 3, l.Spaces)
}

func TestPlaceOrderValidation(t *testing.T) {
	r, store := newTestRouter(t, domain.Lesson{ID: 1, Subject: "Piano", Spaces: 5})

	w := do(r, http.MethodPost, "/orders", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid request. No data provided.", decode[ErrorResponse](t, w).Error)

	w = do(r, http.MethodPost, "/orders", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid request. No data provided.", decode[ErrorResponse](t, w).Error)

	bad := validOrder()
	bad["zip"] = 1234
	bad["totalSpent"] = -1
	w = do(r, http.MethodPost, "/orders", bad)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{
		"Zip code must be a 5-digit number",
		"Lesson items must be a non-empty array",
		"Total spent must be a positive number",
	}, decode[ValidationErrorResponse](t, w).Errors)

	w = do(r, http.MethodPost, "/orders", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Zero(t, store.OrderCount())
}

func TestGetOrderErrors(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(r, http.MethodGet, "/orders/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/orders/6f1c1c52-8b0e-4c4e-9a51-0d1e3a1b2c3d", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateLessons(t *testing.T) {
	r, _ := newTestRouter(t, domain.Lesson{ID: 1, Subject: "Piano", Spaces: 5})

	body := map[string]any{"lessons": []map[string]any{
		{"id": 2, "subject": "Chess", "location": "Hendon", "price": 80, "imagePath": "/static/chess.png", "spaces": 5},
	}}
	auth := []string{"Authorization", "Bearer " + testAdminToken}

	w := do(r, http.MethodPost, "/admin/lessons", body, auth...)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, 1, decode[CreateLessonsResponse](t, w).Created)

	w = do(r, http.MethodPost, "/admin/lessons", body, auth...)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(r, http.MethodGet, "/lessons", nil)
	assert.Len(t, decode[[]domain.Lesson](t, w), 2)

	tooMany := map[string]any{"lessons": []map[string]any{
		{"id": 3, "subject": "Drums", "location": "Hendon", "spaces": 2147483648},
	}}
	w = do(r, http.MethodPost, "/admin/lessons", tooMany, auth...)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateLessonsRequiresToken(t *testing.T) {
	r, store := newTestRouter(t)

	body := map[string]any{"lessons": []map[string]any{
		{"id": 2, "subject": "Chess", "location": "Hendon", "spaces": 5},
	}}

	w := do(r, http.MethodPost, "/admin/lessons", body)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", decode[ErrorResponse](t, w).Error)

	w = do(r, http.MethodPost, "/admin/lessons", body, "Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodPost, "/admin/lessons", body, "Authorization", testAdminToken)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	lessons, err := store.Lessons().List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, lessons)
}

func TestAdminRoutesDisabledWithoutToken(t *testing.T) {
	r, _ := newTestRouterWithConfig(t, RouterConfig{})

	body := map[string]any{"lessons": []map[string]any{
		{"id": 2, "subject": "Chess", "location": "Hendon", "spaces": 5},
	}}
	w := do(r, http.MethodPost, "/admin/lessons", body, "Authorization", "Bearer ")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLessonEventsWithoutRedis(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(r, http.MethodGet, "/lessons/events", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHealthz(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(r, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestEtagMatches(t *testing.T) {
	tag := `W/"abc"`

	assert.True(t, etagMatches(`W/"abc"`, tag))
	assert.True(t, etagMatches(`"abc"`, tag))
	assert.True(t, etagMatches(`"x", W/"abc"`, tag))
	assert.True(t, etagMatches("*", tag))
	assert.False(t, etagMatches(`"abd"`, tag))
	assert.False(t, etagMatches("", tag))
}
