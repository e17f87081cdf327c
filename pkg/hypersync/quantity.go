package hypersync

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
)

// Quantity is a wide unsigned integer decoded from a JSON number, a decimal
// string or a 0x-prefixed hex string. It never passes through float64.
type Quantity big.Int

// NewQuantity wraps v.
func NewQuantity(v uint64) *Quantity {
	return (*Quantity)(new(big.Int).SetUint64(v))
}

// QuantityFromBig copies v.
func QuantityFromBig(v *big.Int) *Quantity {
	return (*Quantity)(new(big.Int).Set(v))
}

// Big returns a copy of the value.
func (q *Quantity) Big() *big.Int {
	return new(big.Int).Set((*big.Int)(q))
}

// Uint64 returns the value when it fits in 64 bits.
func (q *Quantity) Uint64() (uint64, bool) {
	b := (*big.Int)(q)
	if b.Sign() < 0 || !b.IsUint64() {
		return 0, false
	}
	return b.Uint64(), true
}

// String renders base-10.
func (q *Quantity) String() string {
	return (*big.Int)(q).String()
}

// MarshalJSON renders a JSON number; used by test fixtures and debug output.
func (q *Quantity) MarshalJSON() ([]byte, error) {
	return []byte((*big.Int)(q).String()), nil
}

func (q *Quantity) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}

	var text string
	base := 10
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &text); err != nil {
			return err
		}
		if strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X") {
			text = text[2:]
			base = 16
			if text == "" {
				text = "0"
			}
		}
	} else {
		text = string(b)
	}

	v, ok := new(big.Int).SetString(text, base)
	if !ok || v.Sign() < 0 {
		return fmt.Errorf("invalid quantity %s", string(b))
	}
	*q = Quantity(*v)
	return nil
}
