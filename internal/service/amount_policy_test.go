package service

import (
	"errors"
	"testing"
)

func TestComputeOrderAmountPremium(t *testing.T) {
	policy := NewAmountPolicy()
	amount, err := policy.ComputeOrderAmount("premium_features", 0)
	if err != nil {
		t.Fatalf("compute premium amount failed: %v", err)
	}
	if amount != PricePremiumFeaturesPaise {
		t.Fatalf("unexpected premium amount: %d", amount)
	}
}

func TestComputeOrderAmountQRPurchase(t *testing.T) {
	policy := NewAmountPolicy()
	amount, err := policy.ComputeOrderAmount("qr_purchase", 3)
	if err != nil {
		t.Fatalf("compute qr amount failed: %v", err)
	}
	if amount != 3*PriceQRCodePaise {
		t.Fatalf("unexpected qr amount: %d", amount)
	}

	for _, count := range []int{0, -1, 101} {
		if _, err := policy.ComputeOrderAmount("qr_purchase", count); !errors.Is(err, ErrQRCountInvalid) {
			t.Fatalf("expected ErrQRCountInvalid for count %d, got %v", count, err)
		}
	}
}

func TestComputeOrderAmountUnknownPurpose(t *testing.T) {
	policy := NewAmountPolicy()
	if _, err := policy.ComputeOrderAmount("gift_card", 0); !errors.Is(err, ErrPurposeInvalid) {
		t.Fatalf("expected ErrPurposeInvalid, got %v", err)
	}
	if _, err := policy.ComputeOrderAmount("", 0); !errors.Is(err, ErrPurposeInvalid) {
		t.Fatalf("expected ErrPurposeInvalid for empty purpose, got %v", err)
	}
}
