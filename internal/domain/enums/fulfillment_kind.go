package enums

type FulfillmentKind string

const (
	FulfillmentKindDigital  FulfillmentKind = "digital"
	FulfillmentKindPhysical FulfillmentKind = "physical"
)
