package enums

import "strings"

type ProductType string

const (
	ProductTypeDigital  ProductType = "DIGITAL"
	ProductTypePhysical ProductType = "PHYSICAL"
)

// ParseProductType is case-insensitive. Unknown values map to "".
func ParseProductType(value string) ProductType {
	switch ProductType(strings.ToUpper(strings.TrimSpace(value))) {
	case ProductTypeDigital:
		return ProductTypeDigital
	case ProductTypePhysical:
		return ProductTypePhysical
	default:
		return ""
	}
}
