package domain

type Listing struct {
	ID         string
	Name       string
	Slug       string
	ExternalID *string // feed listing id, unique when present
}

type ListingSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}
