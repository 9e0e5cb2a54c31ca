package valueobjects

import (
	"errors"
	"testing"

	domainerrors "crystalgive/contexts/crowdfunding/escrow-service/domain/errors"
)

func TestParseIdentityNormalizesChecksum(t *testing.T) {
	lower, err := ParseIdentity("0x52908400098527886e0f7030069857d2e4169ee7")
	if err != nil {
		t.Fatalf("parse lower: %v", err)
	}
	upper, err := ParseIdentity(" 0x52908400098527886E0F7030069857D2E4169EE7 ")
	if err != nil {
		t.Fatalf("parse upper: %v", err)
	}
	if lower != upper {
		t.Fatalf("expected spellings to compare equal: %s vs %s", lower, upper)
	}
	if lower.String() != "0x52908400098527886E0F7030069857D2E4169EE7" {
		t.Fatalf("unexpected checksum form %s", lower)
	}
}

func TestParseIdentityRejectsInvalidInput(t *testing.T) {
	for _, raw := range []string{"", "alice", "0x1234", "0x0000000000000000000000000000000000000000"} {
		if _, err := ParseIdentity(raw); !errors.Is(err, domainerrors.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument for %q, got %v", raw, err)
		}
	}
}

func TestParseAmount(t *testing.T) {
	amount, err := ParseAmount(" 12.500 ")
	if err != nil {
		t.Fatalf("parse amount: %v", err)
	}
	if amount.String() != "12.5" {
		t.Fatalf("expected 12.5, got %s", amount)
	}
	if _, err := ParseAmount("ten"); !errors.Is(err, domainerrors.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}
