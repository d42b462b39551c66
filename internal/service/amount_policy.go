package service

import (
	"fmt"
	"strings"

	"github.com/Rishiupp/pettrack-api/internal/constants"
)

// Price list in paise. Clients never send amounts; the purpose plus
// server-side rules decide what an order costs.
const (
	PricePremiumFeaturesPaise = 100000 // 1000.00 INR per year
	PriceQRCodePaise          = 15000  // 150.00 INR per code
	PricePetRegistrationPaise = 25000  // 250.00 INR per pet
)

const (
	qrCountMin = 1
	qrCountMax = 100
)

// AmountPolicy computes order amounts from the purchase purpose.
type AmountPolicy struct{}

// NewAmountPolicy builds the policy.
func NewAmountPolicy() *AmountPolicy {
	return &AmountPolicy{}
}

// ComputeOrderAmount returns the price of an order in paise. qrCount is
// only meaningful for qr_purchase and must be within pool limits.
func (p *AmountPolicy) ComputeOrderAmount(purpose string, qrCount int) (int64, error) {
	switch strings.TrimSpace(purpose) {
	case constants.PurposePremiumFeatures:
		return PricePremiumFeaturesPaise, nil
	case constants.PurposeQRPurchase:
		if qrCount < qrCountMin || qrCount > qrCountMax {
			return 0, fmt.Errorf("%w: qr count %d outside [%d, %d]", ErrQRCountInvalid, qrCount, qrCountMin, qrCountMax)
		}
		return PriceQRCodePaise * int64(qrCount), nil
	case constants.PurposePetRegistration:
		return PricePetRegistrationPaise, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrPurposeInvalid, purpose)
	}
}
