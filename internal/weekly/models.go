package weekly

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/ariefcatur/go-weekly-orders/internal/apperr"
)

const DateLayout = "2006-01-02"

// Date is a calendar day, serialised as YYYY-MM-DD.
type Date struct{ time.Time }

func NewDate(y int, m time.Month, d int) Date {
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// DateOf drops the clock part of t, keeping t's calendar day.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{t}, nil
}

func (d Date) String() string { return d.Format(DateLayout) }

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

type List struct {
	ID        int64     `json:"id"`
	WeekStart Date      `json:"week_start"`
	WeekEnd   Date      `json:"week_end"`
	Active    bool      `json:"is_active"`
	Closed    bool      `json:"is_closed"`
	CreatedAt time.Time `json:"created_at"`
}

// AcceptsOrders is true only for the active list while it is open.
func (l List) AcceptsOrders() bool { return l.State() == StateOpen }

// Expired reports whether the list's week ended before today's date.
func (l List) Expired(now time.Time) bool {
	return l.WeekEnd.Before(DateOf(now).Time)
}

type PublishInput struct {
	WeekStart  Date    `json:"week_start"`
	WeekEnd    Date    `json:"week_end"`
	ProductIDs []int64 `json:"product_ids"`
}

// Normalize validates dates and de-duplicates product ids, keeping them sorted.
func (in *PublishInput) Normalize() error {
	switch {
	case in.WeekStart.IsZero():
		return apperr.Required("week_start")
	case in.WeekEnd.IsZero():
		return apperr.Required("week_end")
	case in.WeekEnd.Before(in.WeekStart.Time):
		return apperr.Invalid("week_end", "must not be before week_start")
	case len(in.ProductIDs) == 0:
		return apperr.Invalid("product_ids", "select at least one product")
	}

	seen := make(map[int64]bool, len(in.ProductIDs))
	ids := make([]int64, 0, len(in.ProductIDs))
	for _, id := range in.ProductIDs {
		if id <= 0 {
			return apperr.Invalid("product_ids", fmt.Sprintf("invalid product id %d", id))
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	in.ProductIDs = ids
	return nil
}
