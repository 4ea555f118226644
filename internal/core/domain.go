package core

import (
	"errors"
	"strings"
	"time"
)

// UnknownCategory is the label used when a record references a category
// that no longer exists for its owner.
const UnknownCategory = "Unknown"

const dayLayout = "2006-01-02"

type (
	// Day is a calendar date. All period filtering and grouping keys off it;
	// the time-of-day portion is always midnight UTC.
	Day struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Record is a single expense owned by a user.
	Record struct {
		ID         string
		OwnerID    string
		Amount     Money
		CategoryID string
		Note       string
		OccurredOn Day
		Paid       bool
		CreatedAt  time.Time
		UpdatedAt  time.Time
	}

	// Category is a user-defined expense bucket. Names are not unique per
	// owner; duplicates are allowed by the store and not deduplicated here.
	Category struct {
		ID        string
		OwnerID   string
		Name      string
		CreatedAt time.Time
		UpdatedAt time.Time
	}
)

var (
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrMissingOwner    = errors.New("missing owner")
	ErrMissingCategory = errors.New("missing category")
	ErrShortName       = errors.New("category name too short")
)

// NewDay creates a Day from year, month, day at midnight UTC.
func NewDay(year, month, day int) Day {
	return Day{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DayOf truncates an instant to its calendar date.
func DayOf(t time.Time) Day {
	y, m, d := t.UTC().Date()
	return NewDay(y, int(m), d)
}

// ParseDay parses a YYYY-MM-DD string. Unparseable input yields the zero
// Day rather than an error; the zero Day labels as "-" and fails Validate.
func ParseDay(s string) Day {
	t, err := time.Parse(dayLayout, strings.TrimSpace(s))
	if err != nil {
		return Day{}
	}
	return Day{Time: t}
}

func (d Day) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Label renders the date as YYYY-MM-DD, or "-" for the zero Day.
func (d Day) Label() string {
	if d.IsZero() {
		return "-"
	}
	return d.Format(dayLayout)
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (r Record) Validate() error {
	if strings.TrimSpace(r.OwnerID) == "" {
		return ErrMissingOwner
	}
	if err := r.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(r.CategoryID) == "" {
		return ErrMissingCategory
	}
	if len(r.Note) > 500 {
		return errors.New("note too long (max 500 characters)")
	}
	return r.OccurredOn.Validate()
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.OwnerID) == "" {
		return ErrMissingOwner
	}
	if len(strings.TrimSpace(c.Name)) < 2 {
		return ErrShortName
	}
	if len(c.Name) > 100 {
		return errors.New("category name too long (max 100 characters)")
	}
	return nil
}

// CategoryNames builds a category id to name lookup for breakdown labeling.
func CategoryNames(cats []Category) map[string]string {
	names := make(map[string]string, len(cats))
	for _, c := range cats {
		names[c.ID] = c.Name
	}
	return names
}
