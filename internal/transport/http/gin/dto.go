package httpgin

import (
	"github.com/kirinyoku/lessonbook/internal/domain"
	"github.com/shopspring/decimal"
)

// Prices and totals go out as JSON numbers.
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

type CartRequest struct {
	LessonID int64 `json:"lessonId" binding:"required"`
	Quantity int   `json:"quantity"`
}

type LessonIDsRequest struct {
	LessonIDs []int64 `json:"lessonIds"`
}

// UpdateLessonRequest holds the mutable lesson fields. Absent fields are left
// as they are.
type UpdateLessonRequest struct {
	Subject   *string          `json:"subject"`
	Location  *string          `json:"location"`
	Price     *decimal.Decimal `json:"price"`
	ImagePath *string          `json:"imagePath"`
	Spaces    *int             `json:"spaces" binding:"omitempty,gte=0"`
}

func (r UpdateLessonRequest) toPatch() domain.LessonPatch {
	return domain.LessonPatch{
		Subject:   r.Subject,
		Location:  r.Location,
		Price:     r.Price,
		ImagePath: r.ImagePath,
		Spaces:    r.Spaces,
	}
}

type CreateLessonsRequest struct {
	Lessons []LessonInput `json:"lessons" binding:"required,min=1,dive"`
}

type LessonInput struct {
	ID        int64           `json:"id" binding:"required,gt=0"`
	Subject   string          `json:"subject" binding:"required"`
	Location  string          `json:"location" binding:"required"`
	Price     decimal.Decimal `json:"price"`
	ImagePath string          `json:"imagePath"`
	Spaces    int             `json:"spaces" binding:"gte=0"`
}

// SearchLessonResponse is a lesson as returned by search: without the record
// identifier.
type SearchLessonResponse struct {
	ID        int64           `json:"id"`
	Subject   string          `json:"subject"`
	Location  string          `json:"location"`
	Price     decimal.Decimal `json:"price"`
	ImagePath string          `json:"imagePath"`
	Spaces    int             `json:"spaces"`
}

func toSearchResponse(lessons []domain.Lesson) []SearchLessonResponse {
	out := make([]SearchLessonResponse, len(lessons))
	for i, l := range lessons {
		out[i] = SearchLessonResponse{
			ID:        l.ID,
			Subject:   l.Subject,
			Location:  l.Location,
			Price:     l.Price,
			ImagePath: l.ImagePath,
			Spaces:    l.Spaces,
		}
	}
	return out
}

type LessonMessageResponse struct {
	Message string        `json:"message"`
	Lesson  domain.Lesson `json:"lesson"`
}

type CreateLessonsResponse struct {
	Created int `json:"created"`
}

type PlaceOrderResponse struct {
	Message string `json:"message"`
	OrderID string `json:"orderId"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type ValidationErrorResponse struct {
	Errors []string `json:"errors"`
}
