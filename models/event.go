package models

type Event struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Date  string  `json:"date"` // opaque date string, the client formats it
	Price float64 `json:"price"`
}
