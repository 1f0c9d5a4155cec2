package models

import (
	"time"
)

// Seat describes one bookable seat of a scheduled departure.
// Price is nil when the seat carries no explicit price and the class fare applies.
type Seat struct {
	ID    string   `json:"id" db:"seat_number"`
	Class string   `json:"class" db:"seat_type"` // standard, window, premium, accessible
	Price *float64 `json:"price,omitempty" db:"seat_price"`
}

// Schedule is one dated departure of a bus along a route as supplied by the catalog.
// It is read-only to the booking engine.
type Schedule struct {
	ID            string             `json:"id" db:"id"`
	BusID         string             `json:"bus_id" db:"bus_id"`
	RouteName     string             `json:"route_name" db:"route_name"`
	DepartureTime time.Time          `json:"departure_time" db:"departure_datetime"`
	ArrivalTime   time.Time          `json:"arrival_time" db:"estimated_arrival_datetime"`
	TotalSeats    int                `json:"total_seats" db:"total_seats"`
	BaseFare      float64            `json:"base_fare" db:"base_fare"`
	ClassFares    map[string]float64 `json:"class_fares,omitempty"`
	Seats         []Seat             `json:"seats"`
}

// FindSeat returns the seat descriptor with the given identifier
func (s *Schedule) FindSeat(seatID string) (Seat, bool) {
	for _, seat := range s.Seats {
		if seat.ID == seatID {
			return seat, true
		}
	}
	return Seat{}, false
}

// SeatPrice returns the explicit seat price, falling back to the fare of the
// seat's class and finally to the schedule's base fare
func (s *Schedule) SeatPrice(seat Seat) float64 {
	if seat.Price != nil {
		return *seat.Price
	}
	if fare, ok := s.ClassFares[seat.Class]; ok {
		return fare
	}
	return s.BaseFare
}

// UnknownSeats returns the requested identifiers that are not part of the schedule
func (s *Schedule) UnknownSeats(seatIDs []string) []string {
	var unknown []string
	for _, id := range seatIDs {
		if _, ok := s.FindSeat(id); !ok {
			unknown = append(unknown, id)
		}
	}
	return unknown
}

// HasDeparted checks if the departure time is not after now
func (s *Schedule) HasDeparted(now time.Time) bool {
	return !s.DepartureTime.After(now)
}

// TravelDate returns the departure date in YYYY-MM-DD form
func (s *Schedule) TravelDate() string {
	return s.DepartureTime.Format("2006-01-02")
}

// SeatAvailability is one entry of a schedule seat map
type SeatAvailability struct {
	Seat
	Fare      float64 `json:"fare"`
	Available bool    `json:"available"`
}

// SeatMapResponse is the seat map of a schedule with live availability
type SeatMapResponse struct {
	ScheduleID     string             `json:"schedule_id"`
	BusID          string             `json:"bus_id"`
	RouteName      string             `json:"route_name"`
	DepartureTime  time.Time          `json:"departure_time"`
	TotalSeats     int                `json:"total_seats"`
	AvailableSeats int                `json:"available_seats"`
	Seats          []SeatAvailability `json:"seats"`
}
