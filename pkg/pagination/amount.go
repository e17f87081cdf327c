package pagination

import (
	"fmt"
	"math/big"
	"strconv"
)

// Amount is a wide unsigned integer that serializes as a base-10 JSON string.
// The zero value renders "0".
type Amount struct {
	Int *big.Int
}

// NewAmount copies v; nil yields zero.
func NewAmount(v *big.Int) Amount {
	if v == nil {
		return Amount{}
	}
	return Amount{Int: new(big.Int).Set(v)}
}

func (a Amount) String() string {
	if a.Int == nil {
		return "0"
	}
	return a.Int.String()
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(a.String())), nil
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return fmt.Errorf("amount must be a quoted decimal: %w", err)
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return fmt.Errorf("invalid amount %q", s)
	}
	a.Int = v
	return nil
}
