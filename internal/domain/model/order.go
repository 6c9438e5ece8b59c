package model

type FulfillmentOrder struct {
	ExternalID string
	Recipient  Address
	Items      []OrderItem
}

// OrderItem references either a store sync variant or a catalog variant.
type OrderItem struct {
	SyncVariantID int64
	VariantID     int64
	Quantity      int
}
