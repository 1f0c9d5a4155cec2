package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// Passenger is a traveller bound to exactly one seat of a booking
type Passenger struct {
	Name      string  `json:"name" binding:"required,max=100"`
	Phone     string  `json:"phone,omitempty" binding:"omitempty,phone"`
	SeatID    string  `json:"seat_id" binding:"required,seatid"`
	FareClass string  `json:"fare_class"`
	Fare      float64 `json:"fare"`
}

// Passengers is stored as JSONB
type Passengers []Passenger

func (p Passengers) Value() (driver.Value, error) {
	if p == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(p)
}

func (p *Passengers) Scan(value interface{}) error {
	if value == nil {
		*p = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("type assertion to []byte failed for Passengers")
	}
	return json.Unmarshal(bytes, p)
}
