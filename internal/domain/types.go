package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AddressType string

const (
	AddressHome   AddressType = "Home"
	AddressOffice AddressType = "Office"
)

// MaxSpaces is the largest capacity a lesson can hold.
const MaxSpaces = math.MaxInt32

type Lesson struct {
	RecordID  uuid.UUID       `json:"_id"`
	ID        int64           `json:"id"`
	Subject   string          `json:"subject"`
	Location  string          `json:"location"`
	Price     decimal.Decimal `json:"price"`
	ImagePath string          `json:"imagePath"`
	Spaces    int             `json:"spaces"`
}

// LessonPatch carries the fields of a partial lesson update. Nil fields are
// left untouched.
type LessonPatch struct {
	Subject   *string
	Location  *string
	Price     *decimal.Decimal
	ImagePath *string
	Spaces    *int
}

func (p LessonPatch) Empty() bool {
	return p.Subject == nil &&
		p.Location == nil &&
		p.Price == nil &&
		p.ImagePath == nil &&
		p.Spaces == nil
}

// LineItem is a snapshot of one requested lesson inside an order.
type LineItem struct {
	ID     int64 `json:"id"`
	Spaces int   `json:"spaces"`
}

type Order struct {
	ID          uuid.UUID       `json:"_id"`
	FirstName   string          `json:"firstName"`
	LastName    string          `json:"lastName"`
	Address     string          `json:"address"`
	City        string          `json:"city"`
	State       string          `json:"state"`
	Zip         int             `json:"zip"`
	ShipAsGift  bool            `json:"shipAsGift"`
	AddressType AddressType     `json:"addressType"`
	LessonItems []LineItem      `json:"lessonItems"`
	TotalSpent  decimal.Decimal `json:"totalSpent"`
	CreatedAt   time.Time       `json:"createdAt"`
}
