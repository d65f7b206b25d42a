package orders

import (
	"encoding/json"
	"math"

	"github.com/go-playground/validator/v10"
	"github.com/kirinyoku/lessonbook/internal/domain"
	"github.com/shopspring/decimal"
)

// Payload is an order request body as decoded from JSON. Field types are
// checked by the rules, not by the decoder, so that every violation can be
// reported at once.
type Payload map[string]any

const (
	MsgFirstName   = "First name must contain only alphabetical characters"
	MsgLastName    = "Last name must contain only alphabetical characters"
	MsgAddress     = "Address is required"
	MsgCity        = "City is required"
	MsgState       = "State is required"
	MsgZip         = "Zip code must be a 5-digit number"
	MsgShipAsGift  = "Ship as gift must be true or false"
	MsgAddressType = "Address type must be Home or Office"
	MsgLessonItems = "Lesson items must be a non-empty array"
	MsgLessonItem  = "Each lesson item must have a numeric id and a positive number of spaces"
	MsgTotalSpent  = "Total spent must be a positive number"
)

var validate = validator.New()

type rule struct {
	message string
	valid   func(p Payload) bool
}

// orderRules are evaluated in order, all of them, on every payload.
var orderRules = []rule{
	{MsgFirstName, func(p Payload) bool { return stringMatches(p["firstName"], "required,alpha") }},
	{MsgLastName, func(p Payload) bool { return stringMatches(p["lastName"], "required,alpha") }},
	{MsgAddress, func(p Payload) bool { return stringMatches(p["address"], "required") }},
	{MsgCity, func(p Payload) bool { return stringMatches(p["city"], "required") }},
	{MsgState, func(p Payload) bool { return stringMatches(p["state"], "required") }},
	{MsgZip, func(p Payload) bool {
		zip, ok := asInt(p["zip"])
		return ok && zip >= 10000 && zip <= 99999
	}},
	{MsgShipAsGift, func(p Payload) bool {
		_, ok := p["shipAsGift"].(bool)
		return ok
	}},
	{MsgAddressType, func(p Payload) bool { return stringMatches(p["addressType"], "required,oneof=Home Office") }},
	{MsgLessonItems, func(p Payload) bool {
		items, ok := p["lessonItems"].([]any)
		return ok && len(items) > 0
	}},
	// Only inspects elements of a non-empty list; an empty or missing list is
	// already reported above.
	{MsgLessonItem, func(p Payload) bool {
		items, ok := p["lessonItems"].([]any)
		if !ok {
			return true
		}
		for _, it := range items {
			if _, ok := parseLineItem(it); !ok {
				return false
			}
		}
		return true
	}},
	{MsgTotalSpent, func(p Payload) bool {
		total, ok := asDecimal(p["totalSpent"])
		return ok && total.IsPositive()
	}},
}

// Validate returns the message of every rule p violates, in rule order.
// A nil result means p is a valid order.
func Validate(p Payload) []string {
	var errs []string
	for _, r := range orderRules {
		if !r.valid(p) {
			errs = append(errs, r.message)
		}
	}
	return errs
}

// toOrder builds the order record from a payload that passed Validate.
func toOrder(p Payload) domain.Order {
	o := domain.Order{
		FirstName:   p["firstName"].(string),
		LastName:    p["lastName"].(string),
		Address:     p["address"].(string),
		City:        p["city"].(string),
		State:       p["state"].(string),
		ShipAsGift:  p["shipAsGift"].(bool),
		AddressType: domain.AddressType(p["addressType"].(string)),
	}

	zip, _ := asInt(p["zip"])
	o.Zip = int(zip)
	o.TotalSpent, _ = asDecimal(p["totalSpent"])

	for _, it := range p["lessonItems"].([]any) {
		item, _ := parseLineItem(it)
		o.LessonItems = append(o.LessonItems, item)
	}

	return o
}

func stringMatches(v any, tag string) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	return validate.Var(s, tag) == nil
}

// parseLineItem accepts {"id": n, "spaces": n} and the cart's
// {"id": n, "quantity": n} shape.
func parseLineItem(v any) (domain.LineItem, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return domain.LineItem{}, false
	}

	id, ok := asInt(m["id"])
	if !ok {
		return domain.LineItem{}, false
	}

	raw, present := m["spaces"]
	if !present {
		raw = m["quantity"]
	}
	spaces, ok := asInt(raw)
	if !ok || spaces <= 0 || spaces > domain.MaxSpaces {
		return domain.LineItem{}, false
	}

	return domain.LineItem{ID: id, Spaces: int(spaces)}, true
}

// maxExactInt bounds integers that survive a float64 round trip.
const maxExactInt = 1 << 53

var maxExactDecimal = decimal.NewFromInt(maxExactInt)

// asInt reports v as an int64 when it is a JSON number with no fractional
// part. 12345.0 and 1.2345e4 count as 12345.
func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n != math.Trunc(n) || math.Abs(n) > maxExactInt {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		if err != nil || !d.IsInteger() || d.Abs().GreaterThan(maxExactDecimal) {
			return 0, false
		}
		return d.IntPart(), true
	}
	return 0, false
}

func asDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromFloat(n), true
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		return d, err == nil
	}
	return decimal.Decimal{}, false
}
