package enums

type CheckoutMode string

const (
	CheckoutModeIntent   CheckoutMode = "intent"
	CheckoutModeEmbedded CheckoutMode = "embedded"
	CheckoutModeHosted   CheckoutMode = "hosted"
)

func (m CheckoutMode) Valid() bool {
	switch m {
	case CheckoutModeIntent, CheckoutModeEmbedded, CheckoutModeHosted:
		return true
	default:
		return false
	}
}
