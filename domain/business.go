package domain

// Business is the restaurant whose menu a page session renders.
type Business struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
	Banner      string `json:"banner,omitempty"`
	Location    string `json:"location,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Website     string `json:"website,omitempty"`
	Rating      string `json:"rating,omitempty"`
}
