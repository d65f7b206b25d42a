package httpgin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kirinyoku/lessonbook/internal/domain"
	redisrepo "github.com/kirinyoku/lessonbook/internal/repository/redis"
	"github.com/kirinyoku/lessonbook/internal/service"
	"github.com/kirinyoku/lessonbook/internal/service/catalog"
	"github.com/kirinyoku/lessonbook/internal/service/orders"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type RouterConfig struct {
	AllowOrigins []string
	// StaticDir is served under /static when it exists.
	StaticDir string
	// AdminToken guards /admin. Without it the admin routes are not mounted.
	AdminToken string
}

func NewRouter(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
	logger *slog.Logger,
	cfg RouterConfig,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), RequestIDMiddleware(), LoggingMiddleware(logger), CORS(cfg.AllowOrigins))
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// health
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if cfg.StaticDir != "" {
		if fi, err := os.Stat(cfg.StaticDir); err == nil && fi.IsDir() {
			r.Static("/static", cfg.StaticDir)
		}
	}

	lessons := r.Group("/lessons")
	{
		lessons.GET("", handleListLessons(svcs))
		lessons.GET("/search", handleSearchLessons(svcs))
		lessons.GET("/events", handleLessonEvents(svcs))
		lessons.POST("/cart/add", handleAddToCart(svcs))
		lessons.POST("/cart/remove", handleRemoveFromCart(svcs))
		lessons.POST("/cart/lessons", handleCartLessons(svcs))
		lessons.PUT("/update/:id", handleUpdateLesson(svcs))
	}

	r.POST("/orders", handlePlaceOrder(svcs, idem))
	r.GET("/orders/:id", handleGetOrder(svcs))

	if cfg.AdminToken != "" {
		admin := r.Group("/admin", AdminAuth(cfg.AdminToken))
		{
			admin.POST("/lessons", handleCreateLessons(svcs))
		}
	} else {
		logger.Info("admin routes disabled: no admin token configured")
	}

	return r
}

// --- Handlers with Swagger annotations ---

// @Summary  List lessons
// @Tags     lessons
// @Success  200  {array}   domain.Lesson
// @Success  304  "not modified"
// @Router   /lessons [get]
func handleListLessons(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		lessons, err := svcs.Catalog.List(c.Request.Context())
		if err != nil {
			respondErr(c, err, "Error fetching lessons")
			return
		}
		// spaces change on every cart action, so clients must revalidate
		writeJSONWithCache(c, http.StatusOK, lessons, "no-cache", true)
	}
}

// @Summary  Search lessons by subject
// @Tags     lessons
// @Param    query  query  string  false  "subject substring"
// @Success  200  {array}  SearchLessonResponse
// @Router   /lessons/search [get]
func handleSearchLessons(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		lessons, err := svcs.Catalog.Search(c.Request.Context(), c.Query("query"))
		if err != nil {
			respondErr(c, err, "Error searching lessons")
			return
		}
		c.JSON(http.StatusOK, toSearchResponse(lessons))
	}
}

// @Summary  Stream lesson changes (SSE)
// @Tags     lessons
// @Produce  text/event-stream
// @Success  200  {object}  redisrepo.LessonChanged
// @Failure  503  {object}  ErrorResponse
// @Router   /lessons/events [get]
func handleLessonEvents(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !svcs.Catalog.ChangesEnabled() {
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "lesson change stream is not available"})
			return
		}

		ctx, cancel := context.WithCancel(c.Request.Context())
		defer cancel()

		events := make(chan redisrepo.LessonChanged, 16)
		done := make(chan error, 1)
		go func() {
			done <- svcs.Catalog.WatchChanges(ctx, func(ctx context.Context, ev redisrepo.LessonChanged) {
				select {
				case events <- ev:
				case <-ctx.Done():
				}
			})
		}()

		c.Header("Cache-Control", "no-cache")
		c.Header("X-Accel-Buffering", "no")

		c.Stream(func(w io.Writer) bool {
			select {
			case ev := <-events:
				c.SSEvent(ev.Type, ev)
				return true
			case err := <-done:
				if err != nil && !errors.Is(err, context.Canceled) {
					_ = c.Error(err)
				}
				return false
			case <-ctx.Done():
				return false
			}
		})
	}
}

// @Summary  Reserve lesson spaces for the cart
// @Tags     cart
// @Param    req  body  CartRequest  true  "payload"
// @Success  200  {object}  LessonMessageResponse
// @Failure  400  {object}  ErrorResponse  "not enough spaces"
// @Failure  404  {object}  ErrorResponse
// @Router   /lessons/cart/add [post]
func handleAddToCart(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CartRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		lesson, err := svcs.Catalog.AddToCart(c.Request.Context(), req.LessonID, req.Quantity)
		if err != nil {
			respondErr(c, err, "Error adding to cart")
			return
		}
		c.JSON(http.StatusOK, LessonMessageResponse{Message: "Item added to cart", Lesson: *lesson})
	}
}

// @Summary  Release lesson spaces from the cart
// @Tags     cart
// @Param    req  body  CartRequest  true  "payload"
// @Success  200  {object}  LessonMessageResponse
// @Failure  400  {object}  ErrorResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /lessons/cart/remove [post]
func handleRemoveFromCart(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CartRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		lesson, err := svcs.Catalog.RemoveFromCart(c.Request.Context(), req.LessonID, req.Quantity)
		if err != nil {
			respondErr(c, err, "Error removing from cart")
			return
		}
		c.JSON(http.StatusOK, LessonMessageResponse{Message: "Item removed from cart", Lesson: *lesson})
	}
}

// @Summary  Fetch the lessons in a cart
// @Tags     cart
// @Param    req  body  LessonIDsRequest  true  "payload"
// @Success  200  {array}   domain.Lesson
// @Failure  400  {object}  ErrorResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /lessons/cart/lessons [post]
func handleCartLessons(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LessonIDsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid lessonIds. Must be a non-empty array.")
			return
		}
		lessons, err := svcs.Catalog.GetMany(c.Request.Context(), req.LessonIDs)
		if err != nil {
			respondErr(c, err, "Error fetching lessons for cart.")
			return
		}
		c.JSON(http.StatusOK, lessons)
	}
}

// @Summary  Update lesson fields
// @Tags     lessons
// @Param    id   path  int                  true  "Lesson ID"
// @Param    req  body  UpdateLessonRequest  true  "fields to change"
// @Success  200  {object}  LessonMessageResponse
// @Failure  400  {object}  ErrorResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /lessons/update/{id} [put]
func handleUpdateLesson(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		lessonID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req UpdateLessonRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		lesson, err := svcs.Catalog.Update(c.Request.Context(), lessonID, req.toPatch())
		if err != nil {
			var nf *catalog.LessonNotFoundError
			if errors.As(err, &nf) {
				c.JSON(http.StatusNotFound, ErrorResponse{
					Error: fmt.Sprintf("Lesson with ID %d not found", nf.LessonID),
				})
				return
			}
			respondErr(c, err, "Error updating lesson")
			return
		}
		c.JSON(http.StatusOK, LessonMessageResponse{Message: "Lesson updated successfully", Lesson: *lesson})
	}
}

// @Summary  Place order (optionally idempotent)
// @Tags     orders
// @Param    Idempotency-Key  header  string  false  "replay protection"
// @Param    req  body  object  true  "order"
// @Header   201 {string} Idempotency-Key "echo"
// @Success  201 {object} PlaceOrderResponse
// @Failure  400 {object} ValidationErrorResponse
// @Failure  404 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "idem in progress / concurrent update"
// @Failure  429 {object} ErrorResponse "rate limited"
// @Router   /orders [post]
func handlePlaceOrder(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		payload, err := decodePayload(c.Request.Body)
		if err != nil {
			badRequest(c, "Invalid JSON body")
			return
		}

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		var idemStorageKey string
		if idem != nil && idemKey != "" {
			idemStorageKey = redisrepo.KeyIdemOrder(idemKey)

			if replayIdempotent(c, idem, idemStorageKey, idemKey) {
				return
			}

			locked, err := idem.AcquireLock(
				c.Request.Context(),
				idemStorageKey,
				60*time.Second,
			)
			if err != nil {
				respondErr(c, err, "Error placing order")
				return
			}
			if !locked {
				if replayIdempotent(c, idem, idemStorageKey, idemKey) {
					return
				}
				c.Header("Retry-After", "1")
				c.JSON(
					http.StatusConflict,
					ErrorResponse{Error: "idempotency key in progress"},
				)
				return
			}
		}

		orderID, err := svcs.Orders.Place(
			c.Request.Context(),
			payload,
			c.ClientIP(),
		)
		if err != nil {
			if idemStorageKey != "" {
				_ = idem.Release(c.Request.Context(), idemStorageKey)
			}
			respondErr(c, err, "Error placing order")
			return
		}

		resp := PlaceOrderResponse{
			Message: "Order placed successfully",
			OrderID: orderID.String(),
		}

		if idemStorageKey != "" {
			b, _ := json.Marshal(resp)
			_ = idem.SaveResult(c.Request.Context(), idemStorageKey, string(b))
			c.Header("Idempotency-Key", idemKey)
		}

		c.JSON(http.StatusCreated, resp)
	}
}

// @Summary  Get order
// @Tags     orders
// @Param    id  path  string  true  "Order ID (uuid)"
// @Success  200 {object} domain.Order
// @Failure  404 {object} ErrorResponse
// @Router   /orders/{id} [get]
func handleGetOrder(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			badRequest(c, "invalid id")
			return
		}
		o, err := svcs.Orders.Get(c.Request.Context(), orderID)
		if err != nil {
			respondErr(c, err, "Error fetching order")
			return
		}
		c.JSON(http.StatusOK, o)
	}
}

// @Summary  Seed lessons
// @Tags     admin
// @Security AdminToken
// @Param    req body  CreateLessonsRequest true "payload"
// @Success  201 {object} CreateLessonsResponse
// @Failure  401 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse
// @Router   /admin/lessons [post]
func handleCreateLessons(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateLessonsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		lessons := make([]domain.Lesson, 0, len(req.Lessons))
		for _, l := range req.Lessons {
			lessons = append(lessons, domain.Lesson{
				ID:        l.ID,
				Subject:   l.Subject,
				Location:  l.Location,
				Price:     l.Price,
				ImagePath: l.ImagePath,
				Spaces:    l.Spaces,
			})
		}
		if err := svcs.Catalog.CreateLessons(c.Request.Context(), lessons); err != nil {
			respondErr(c, err, "Error creating lessons")
			return
		}
		c.JSON(http.StatusCreated, CreateLessonsResponse{Created: len(lessons)})
	}
}

// --- Helpers ---

func parseInt64Param(c *gin.Context, name string) (int64, bool) {
	s := c.Param(name)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

// decodePayload reads an order body keeping numbers as json.Number, so that
// integral checks see the literal value. An empty body decodes to nil.
func decodePayload(body io.Reader) (orders.Payload, error) {
	dec := json.NewDecoder(body)
	dec.UseNumber()

	var p orders.Payload
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return p, nil
}

func replayIdempotent(
	c *gin.Context,
	idem *redisrepo.IdempotencyStore,
	storageKey, idemKey string,
) bool {
	payload, ok, _ := idem.GetResult(c.Request.Context(), storageKey)
	if !ok {
		return false
	}
	c.Header("Idempotency-Key", idemKey)
	c.Data(
		http.StatusCreated,
		"application/json; charset=utf-8",
		[]byte(payload),
	)
	return true
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func retryAfterSeconds(d time.Duration) string {
	s := int(math.Ceil(d.Seconds()))
	if s < 1 {
		s = 1
	}
	return strconv.Itoa(s)
}

// respondErr maps service errors to responses. Anything it does not know is
// attached to the context for the logging middleware and answered with a 500
// carrying fallback.
func respondErr(c *gin.Context, err error, fallback string) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	var (
		validationErr *orders.ValidationError
		notFoundErr   *orders.LessonNotFoundError
		spacesErr     *orders.InsufficientSpacesError
		rateErr       *orders.RateLimitedError
	)

	switch {
	// catalog service
	case errors.Is(err, catalog.ErrLessonNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Lesson not found"})
	case errors.Is(err, catalog.ErrNotEnoughSpaces):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Not enough spaces available"})
	case errors.Is(err, catalog.ErrInvalidQuantity):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Quantity must be a positive integer"})
	case errors.Is(err, catalog.ErrNoLessonIDs):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid lessonIds. Must be a non-empty array."})
	case errors.Is(err, catalog.ErrNoLessonsFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "No lessons found for the provided IDs."})
	case errors.Is(err, catalog.ErrEmptyPatch):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "No fields to update"})
	case errors.Is(err, catalog.ErrNegativeSpaces):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Spaces must not be negative"})
	case errors.Is(err, catalog.ErrSpacesOutOfRange):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("Spaces must not exceed %d", domain.MaxSpaces)})
	case errors.Is(err, catalog.ErrLessonConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "Lesson already exists"})
	case errors.Is(err, catalog.ErrNoLessonsToCreate):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "No lessons to create"})
	case errors.Is(err, catalog.ErrChangesUnavailable):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "lesson change stream is not available"})
	// orders service
	case errors.Is(err, orders.ErrEmptyPayload):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request. No data provided."})
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, ValidationErrorResponse{Errors: validationErr.Messages})
	case errors.As(err, &rateErr):
		c.Header("Retry-After", retryAfterSeconds(rateErr.RetryAfter))
		c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "Too many orders, try again later"})
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: notFoundErr.Error()})
	case errors.As(err, &spacesErr):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: spacesErr.Error()})
	case errors.Is(err, orders.ErrOrderConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "Order conflicts with a concurrent update, please retry"})
	case errors.Is(err, orders.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Order not found"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: fallback})
	}
}
