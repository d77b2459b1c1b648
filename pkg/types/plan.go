package types

// Plan describes a purchasable tier backed by a payment-provider price.
type Plan struct {
	ID          string `json:"id" mapstructure:"id"`
	Name        string `json:"name" mapstructure:"name"`
	PriceID     string `json:"price_id" mapstructure:"price_id"`
	Interval    string `json:"interval" mapstructure:"interval"`
	AmountCents int64  `json:"amount_cents" mapstructure:"amount_cents"`
	Currency    string `json:"currency" mapstructure:"currency"`
}

type Platform string

const (
	PlatformDarwinARM64  Platform = "darwin-arm64"
	PlatformDarwinAMD64  Platform = "darwin-amd64"
	PlatformWindowsAMD64 Platform = "windows-amd64"
)

func (p Platform) Valid() bool {
	switch p {
	case PlatformDarwinARM64, PlatformDarwinAMD64, PlatformWindowsAMD64:
		return true
	}
	return false
}
