package valueobjects

import (
	"strings"

	domainerrors "crystalgive/contexts/crowdfunding/escrow-service/domain/errors"

	"github.com/ethereum/go-ethereum/common"
)

// Identity is an account address in EIP-55 checksum form. Two spellings of the
// same address compare equal once parsed.
type Identity string

func ParseIdentity(raw string) (Identity, error) {
	value := strings.TrimSpace(raw)
	if !common.IsHexAddress(value) {
		return "", domainerrors.ErrInvalidIdentity
	}
	address := common.HexToAddress(value)
	if address == (common.Address{}) {
		return "", domainerrors.ErrInvalidIdentity
	}
	return Identity(address.Hex()), nil
}

func MustIdentity(raw string) Identity {
	identity, err := ParseIdentity(raw)
	if err != nil {
		panic(err)
	}
	return identity
}

func (i Identity) String() string {
	return string(i)
}

func (i Identity) IsZero() bool {
	return i == ""
}
