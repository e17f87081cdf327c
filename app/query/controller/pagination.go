package controller

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/canopy-network/addrhistory/app/query/types"
	"github.com/canopy-network/addrhistory/pkg/pagination"
	"github.com/ethereum/go-ethereum/common"
)

// parsePageRequest reads chain, address, cursor, limit and sort. An absent,
// empty or zero cursor means "start of range" for either direction.
func parsePageRequest(r *http.Request, limits types.Limits) (pagination.Request, error) {
	qs := r.URL.Query()

	v := qs.Get("chain")
	if v == "" {
		return pagination.Request{}, errMissingChain
	}
	chainID, err := strconv.ParseUint(v, 10, 64)
	if err != nil || chainID == 0 {
		return pagination.Request{}, errInvalidChain
	}

	address, err := parseAddress(qs.Get("address"))
	if err != nil {
		return pagination.Request{}, err
	}

	limit := min(limits.Default, limits.Max)
	if v := qs.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return pagination.Request{}, errInvalidLimit
		}
		limit = min(n, limits.Max)
	}

	var cursor *uint64
	if v := qs.Get("cursor"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		// the response cursor is signed, so larger block numbers cannot round-trip
		if err != nil || n > math.MaxInt64 {
			return pagination.Request{}, errInvalidCursor
		}
		if n > 0 {
			cursor = &n
		}
	}

	// Parse sort parameter, default to "desc" (newest first)
	sort := pagination.SortDesc
	if v := qs.Get("sort"); v != "" {
		s, err := pagination.ParseSort(v)
		if err != nil {
			return pagination.Request{}, errInvalidSort
		}
		sort = s
	}

	return pagination.Request{
		ChainID: chainID,
		Address: address,
		Cursor:  cursor,
		Limit:   limit,
		Sort:    sort,
	}, nil
}

func parseAddress(v string) (common.Address, error) {
	if v == "" {
		return common.Address{}, errMissingAddress
	}
	if len(v) != 42 || !strings.HasPrefix(v, "0x") || !common.IsHexAddress(v) {
		return common.Address{}, errInvalidAddress
	}
	return common.HexToAddress(v), nil
}

var (
	errMissingChain   = &parseError{msg: "missing chain"}
	errInvalidChain   = &parseError{msg: "invalid chain, must be a positive integer"}
	errMissingAddress = &parseError{msg: "missing address"}
	errInvalidAddress = &parseError{msg: "invalid address, must be 0x followed by 40 hex characters"}
	errInvalidLimit   = &parseError{msg: "invalid limit"}
	errInvalidCursor  = &parseError{msg: "invalid cursor"}
	errInvalidSort    = &parseError{msg: "invalid sort, must be 'asc' or 'desc'"}
)

type parseError struct{ msg string }

func (e *parseError) Error() string { return e.msg }
