package models

type Table struct {
	ID       string `validate:"required"`
	Number   string `validate:"required"`
	Slug     string
	Capacity int `validate:"gte=0"`
	Location string
	Active   bool
}

// TableInput is the admin form for a dining table.
type TableInput struct {
	Number   string `json:"number" validate:"required"`
	Capacity int    `json:"capacity" validate:"gte=1"`
	Location string `json:"location"`
}
