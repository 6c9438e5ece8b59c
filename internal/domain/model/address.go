package model

import "github.com/HyperSlump/shop-sub000/internal/pkg/validate"

// Address uses the print partner's recipient field names so it can be sent as is.
type Address struct {
	Name        string `json:"name,omitempty"`
	Address1    string `json:"address1"`
	Address2    string `json:"address2,omitempty"`
	City        string `json:"city"`
	StateCode   string `json:"state_code,omitempty"`
	CountryCode string `json:"country_code"`
	Zip         string `json:"zip,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email,omitempty"`
}

// MissingFields lists the recipient fields the print partner cannot quote
// or ship without.
func (a Address) MissingFields() []string {
	return validate.Missing(
		validate.Field{Name: "address1", Value: a.Address1},
		validate.Field{Name: "city", Value: a.City},
		validate.Field{Name: "country_code", Value: a.CountryCode},
	)
}
