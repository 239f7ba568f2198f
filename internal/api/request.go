package api

import (
	"bytes"
	"encoding/json"
	"math/big"
	"strings"

	"github.com/ez-dapp/gasless-server/internal/voucher"
)

// Request bodies. Identifier fields accept any JSON scalar so that a
// malformed value is reported as "Invalid <field>: <value>" by the mediator;
// numeric fields keep their raw form and are decoded by bigField/secondsField.

// issueBody serves both POST /gasless/voucher/request and POST /issue.
type issueBody struct {
	Account       looseString     `json:"account"`
	Amount        json.RawMessage `json:"amount"`
	DurationInSec json.RawMessage `json:"durationInSec"`
}

type prolongBody struct {
	VoucherID     looseString     `json:"voucherId"`
	Account       looseString     `json:"account"`
	Balance       json.RawMessage `json:"balance"`
	DurationInSec json.RawMessage `json:"durationInSec"`
}

type revokeBody struct {
	VoucherID looseString `json:"voucherId"`
	Account   looseString `json:"account"`
}

// voucherRequestResponse is the body returned by POST /gasless/voucher/request.
type voucherRequestResponse struct {
	VoucherID string `json:"voucherId"`
}

// looseString takes a JSON string as is and any other scalar as its literal
// text. null and absent both decode to "".
type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = looseString(v)
		return nil
	}
	*s = looseString(b)
	return nil
}

func isAbsent(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// maxNumberLen bounds the text of a numeric field. 2^256 has 78 digits.
const maxNumberLen = 100

// bigField decodes an integer given as a JSON number or numeric string.
// def is returned when the field is absent or null.
func bigField(field string, raw json.RawMessage, def *big.Int) (*big.Int, error) {
	if isAbsent(raw) {
		return def, nil
	}
	text := strings.TrimSpace(string(raw))
	if strings.HasPrefix(text, `"`) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, &voucher.InputError{Field: field, Value: text}
		}
		text = strings.TrimSpace(s)
	}
	if len(text) > maxNumberLen {
		return nil, &voucher.InputError{Field: field, Value: text[:16] + "...", Reason: "too long"}
	}
	n, ok := new(big.Int).SetString(text, 10)
	if !ok {
		// JSON numbers such as 1e13 or 5000.0 are accepted when integral.
		f, _, err := big.ParseFloat(text, 10, voucher.MaxAmountBits, big.ToNearestEven)
		if err != nil || !f.IsInt() {
			return nil, &voucher.InputError{Field: field, Value: text, Reason: "not an integer"}
		}
		if f.MantExp(nil) > voucher.MaxAmountBits {
			return nil, &voucher.InputError{Field: field, Value: text, Reason: "exceeds uint256"}
		}
		n, _ = f.Int(nil)
	}
	if n.BitLen() > voucher.MaxAmountBits {
		return nil, &voucher.InputError{Field: field, Value: text, Reason: "exceeds uint256"}
	}
	return n, nil
}

// secondsField decodes a non-negative duration in seconds.
func secondsField(field string, raw json.RawMessage, def uint64) (uint64, error) {
	n, err := bigField(field, raw, new(big.Int).SetUint64(def))
	if err != nil {
		return 0, err
	}
	if n.Sign() < 0 || !n.IsUint64() {
		return 0, &voucher.InputError{Field: field, Value: n.String(), Reason: "out of range"}
	}
	return n.Uint64(), nil
}
