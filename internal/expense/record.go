package expense

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/zombor/viatico-tracker/internal/artifact"
)

// MaxPhotos is the number of photo slots a record may fill
const MaxPhotos = 5

// ErrInvalidRecord is returned when a record fails validation
var ErrInvalidRecord = errors.New("invalid expense record")

const (
	StatusSavings   = "Savings"
	StatusOverspend = "Overspend"
)

// TransportMode is how the technician travelled
type TransportMode string

const (
	Bus             TransportMode = "Bus"
	PersonalVehicle TransportMode = "PersonalVehicle"
	TukTuk          TransportMode = "TukTuk"
	Rideshare       TransportMode = "Rideshare"
	Taxi            TransportMode = "Taxi"
	Mototaxi        TransportMode = "Mototaxi"
	Bicycle         TransportMode = "Bicycle"
	Walking         TransportMode = "Walking"
	OtherTransport  TransportMode = "Other"
)

var transportModes = []TransportMode{Bus, PersonalVehicle, TukTuk, Rideshare, Taxi, Mototaxi, Bicycle, Walking, OtherTransport}

// Valid reports whether m is a known transport mode
func (m TransportMode) Valid() bool {
	for _, known := range transportModes {
		if m == known {
			return true
		}
	}
	return false
}

// MealType is which meal was paid for
type MealType string

const (
	Breakfast MealType = "Breakfast"
	Lunch     MealType = "Lunch"
	Dinner    MealType = "Dinner"
)

// Valid reports whether t is a known meal type
func (t MealType) Valid() bool {
	return t == Breakfast || t == Lunch || t == Dinner
}

// TransportLeg is one trip segment with its outbound and return fares
type TransportLeg struct {
	Mode           TransportMode   `json:"mode"`
	OutboundAmount decimal.Decimal `json:"outbound_amount"`
	ReturnAmount   decimal.Decimal `json:"return_amount"`
	Description    string          `json:"description,omitempty"`
}

// Total returns the outbound plus return fare
func (l TransportLeg) Total() decimal.Decimal {
	return l.OutboundAmount.Add(l.ReturnAmount)
}

// Label describes the leg for display, e.g. "Bus (to site)"
func (l TransportLeg) Label() string {
	if d := strings.TrimSpace(l.Description); d != "" {
		return fmt.Sprintf("%s (%s)", l.Mode, d)
	}
	return string(l.Mode)
}

// Lodging is where the technician stayed
type Lodging struct {
	Amount    decimal.Decimal `json:"amount"`
	PlaceName string          `json:"place_name"`
}

// Meal is the meal expense for the trip
type Meal struct {
	Amount decimal.Decimal `json:"amount"`
	Type   MealType        `json:"type"`
}

// Record is one technician trip ("viático") with its itemized expenses and evidence
type Record struct {
	ID             string              `json:"id"`
	TechnicianName string              `json:"technician_name"`
	Phone          string              `json:"phone"`
	Client         string              `json:"client"`
	Location       string              `json:"location"`
	EntryTime      time.Time           `json:"entry_time"`
	ExitTime       time.Time           `json:"exit_time"`
	TransportLegs  []TransportLeg      `json:"transport_legs"`
	Lodging        Lodging             `json:"lodging"`
	Meal           Meal                `json:"meal"`
	CashAdvanced   decimal.Decimal     `json:"cash_advanced"`
	Photos         []artifact.Artifact `json:"photos"`
	Signature      artifact.Artifact   `json:"signature"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// TransportTotal sums every leg's outbound and return fares
func (r *Record) TransportTotal() decimal.Decimal {
	total := decimal.Zero
	for _, leg := range r.TransportLegs {
		total = total.Add(leg.Total())
	}
	return total
}

// TransportSummary joins the leg labels, e.g. "Bus, Taxi (airport)"
func (r *Record) TransportSummary() string {
	labels := make([]string, 0, len(r.TransportLegs))
	for _, leg := range r.TransportLegs {
		labels = append(labels, leg.Label())
	}
	return strings.Join(labels, ", ")
}

// TotalSpent is always recomputed from the line items
func (r *Record) TotalSpent() decimal.Decimal {
	return r.TransportTotal().Add(r.Lodging.Amount).Add(r.Meal.Amount)
}

// Difference is cash advanced minus total spent; negative means overspend
func (r *Record) Difference() decimal.Decimal {
	return r.CashAdvanced.Sub(r.TotalSpent())
}

// Status labels the record by the sign of its difference
func (r *Record) Status() string {
	return StatusFor(r.Difference())
}

// StatusFor returns StatusSavings for non-negative differences and StatusOverspend otherwise
func StatusFor(difference decimal.Decimal) string {
	if difference.IsNegative() {
		return StatusOverspend
	}
	return StatusSavings
}

// Validate checks the invariants the report builder relies on
func (r *Record) Validate() error {
	var problems []string
	required := []struct{ name, value string }{
		{"technician_name", r.TechnicianName},
		{"phone", r.Phone},
		{"client", r.Client},
		{"location", r.Location},
		{"lodging.place_name", r.Lodging.PlaceName},
	}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			problems = append(problems, field.name+" is required")
		}
	}

	switch {
	case r.EntryTime.IsZero() || r.ExitTime.IsZero():
		problems = append(problems, "entry_time and exit_time are required")
	case !r.ExitTime.After(r.EntryTime):
		problems = append(problems, "exit_time must be after entry_time")
	}

	for i, leg := range r.TransportLegs {
		if !leg.Mode.Valid() {
			problems = append(problems, fmt.Sprintf("transport_legs[%d].mode %q is not valid", i, leg.Mode))
		}
		if leg.OutboundAmount.IsNegative() || leg.ReturnAmount.IsNegative() {
			problems = append(problems, fmt.Sprintf("transport_legs[%d] amounts must not be negative", i))
		}
	}
	if r.Lodging.Amount.IsNegative() {
		problems = append(problems, "lodging.amount must not be negative")
	}
	if r.Meal.Amount.IsNegative() {
		problems = append(problems, "meal.amount must not be negative")
	}
	if !r.Meal.Type.Valid() {
		problems = append(problems, fmt.Sprintf("meal.type %q is not valid", r.Meal.Type))
	}
	if r.CashAdvanced.IsNegative() {
		problems = append(problems, "cash_advanced must not be negative")
	}
	if len(r.Photos) > MaxPhotos {
		problems = append(problems, fmt.Sprintf("at most %d photos are allowed", MaxPhotos))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidRecord, strings.Join(problems, "; "))
	}
	return nil
}
