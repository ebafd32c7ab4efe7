package khqr

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/maiyoury/pkasla/pkg/enums"
)

// Decode parses a QR string back into its logical payload. It verifies the
// CRC trailer first and rejects anything that does not parse as TLV. Exists
// mostly for inspection and tests; wallets are the real consumers.
func Decode(payload string) (MerchantPayload, error) {
	var out MerchantPayload

	if len(payload) < 8 {
		return out, fmt.Errorf("%w: too short", ErrMalformedPayload)
	}
	if !VerifyChecksum(payload) {
		return out, ErrChecksumMismatch
	}

	fields, err := parseTLV(payload[:len(payload)-8])
	if err != nil {
		return out, err
	}

	var numericCurrency string
	for _, f := range fields {
		switch f.tag {
		case tagMerchantAccount:
			subs, err := parseTLV(f.value)
			if err != nil {
				return out, err
			}
			for _, s := range subs {
				if s.tag == subTagAccountID {
					out.MerchantAccountID = s.value
				}
			}
		case tagMerchantCategory:
			out.MerchantCategory = f.value
		case tagCurrency:
			numericCurrency = f.value
		case tagAmount:
			amount, err := decimal.NewFromString(f.value)
			if err != nil {
				return out, fmt.Errorf("%w: bad amount %q", ErrMalformedPayload, f.value)
			}
			out.Amount = &amount
		case tagMerchantName:
			out.MerchantName = f.value
		case tagMerchantCity:
			out.MerchantCity = f.value
		case tagAdditionalData:
			subs, err := parseTLV(f.value)
			if err != nil {
				return out, err
			}
			for _, s := range subs {
				switch s.tag {
				case subTagBillNumber:
					out.BillNumber = s.value
				case subTagStoreLabel:
					out.StoreLabel = s.value
				case subTagExpiry:
					millis, err := strconv.ParseInt(s.value, 10, 64)
					if err != nil {
						return out, fmt.Errorf("%w: bad expiry %q", ErrMalformedPayload, s.value)
					}
					out.ExpiryMillis = millis
				}
			}
		}
	}

	switch numericCurrency {
	case enums.CurrencyKHR.NumericCode():
		out.Currency = enums.CurrencyKHR
	case enums.CurrencyUSD.NumericCode():
		out.Currency = enums.CurrencyUSD
	default:
		return out, fmt.Errorf("%w: unknown currency code %q", ErrMalformedPayload, numericCurrency)
	}

	return out, nil
}

type tlvField struct {
	tag   string
	value string
}

func parseTLV(data string) ([]tlvField, error) {
	var fields []tlvField
	for i := 0; i < len(data); {
		if i+4 > len(data) {
			return nil, fmt.Errorf("%w: truncated header at offset %d", ErrMalformedPayload, i)
		}
		tag := data[i : i+2]
		length, err := strconv.Atoi(data[i+2 : i+4])
		if err != nil {
			return nil, fmt.Errorf("%w: non-numeric length at offset %d", ErrMalformedPayload, i)
		}
		if i+4+length > len(data) {
			return nil, fmt.Errorf("%w: value overruns payload at offset %d", ErrMalformedPayload, i)
		}
		fields = append(fields, tlvField{tag: tag, value: data[i+4 : i+4+length]})
		i += 4 + length
	}
	return fields, nil
}
