// Package khqr implements the KHQR (EMV-QR) payload codec used by
// Cambodian instant-payment wallets. Every field is serialized as
// TAG (two digits) + LENGTH (two digits) + VALUE, with a CRC-16
// trailer protecting the whole string. The package is pure; it does
// no I/O and holds no state.
package khqr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/maiyoury/pkasla/pkg/enums"
)

var (
	// ErrPayloadTooLarge is returned when a field value exceeds the 99-byte
	// maximum that a two-digit length prefix can describe.
	ErrPayloadTooLarge = errors.New("khqr: field value exceeds 99 bytes")

	// ErrMissingExpiry is returned when an amount is supplied without an
	// expiration timestamp. Dynamic amount-bearing codes require one.
	ErrMissingExpiry = errors.New("khqr: amount requires an expiration timestamp")

	// ErrMalformedPayload is returned by Decode for input that does not
	// parse as well-formed TLV.
	ErrMalformedPayload = errors.New("khqr: malformed payload")

	// ErrChecksumMismatch is returned by Decode when the CRC trailer does
	// not match the payload body.
	ErrChecksumMismatch = errors.New("khqr: checksum mismatch")
)

const (
	tagPayloadFormat    = "00"
	tagPointOfInit      = "01"
	tagMerchantAccount  = "29"
	tagMerchantCategory = "52"
	tagCurrency         = "53"
	tagAmount           = "54"
	tagCountryCode      = "58"
	tagMerchantName     = "59"
	tagMerchantCity     = "60"
	tagAdditionalData   = "62"
	tagCRC              = "63"

	subTagAccountID  = "00"
	subTagBillNumber = "01"
	subTagStoreLabel = "03"
	subTagExpiry     = "99"

	payloadFormatValue = "01"
	pointOfInitStatic  = "11"
	pointOfInitDynamic = "12"
	countryCodeValue   = "KH"
)

// MerchantPayload is the logical content of a merchant-presented QR code.
// Amount is optional; when set, ExpiryMillis must also be set. BillNumber
// carries the transaction reference a payer's wallet echoes back.
type MerchantPayload struct {
	MerchantAccountID string
	MerchantName      string
	MerchantCity      string
	MerchantCategory  string
	Currency          enums.Currency
	Amount            *decimal.Decimal
	BillNumber        string
	StoreLabel        string
	ExpiryMillis      int64
}

// Encode serializes the payload into the scannable QR string, including the
// CRC trailer. Amount formatting follows the currency's decimal convention:
// riel amounts are emitted as integer strings, dollar amounts with exactly
// two decimal places.
func Encode(p MerchantPayload) (string, error) {
	if p.Amount != nil && p.ExpiryMillis == 0 {
		return "", ErrMissingExpiry
	}

	var b strings.Builder

	if err := writeField(&b, tagPayloadFormat, payloadFormatValue); err != nil {
		return "", err
	}
	initMethod := pointOfInitStatic
	if p.Amount != nil {
		initMethod = pointOfInitDynamic
	}
	if err := writeField(&b, tagPointOfInit, initMethod); err != nil {
		return "", err
	}

	account, err := encodeTLV(subTagAccountID, p.MerchantAccountID)
	if err != nil {
		return "", err
	}
	if err := writeField(&b, tagMerchantAccount, account); err != nil {
		return "", err
	}

	if err := writeField(&b, tagMerchantCategory, p.MerchantCategory); err != nil {
		return "", err
	}
	if err := writeField(&b, tagCurrency, p.Currency.NumericCode()); err != nil {
		return "", err
	}
	if p.Amount != nil {
		formatted := p.Amount.StringFixed(p.Currency.Decimals())
		if err := writeField(&b, tagAmount, formatted); err != nil {
			return "", err
		}
	}
	if err := writeField(&b, tagCountryCode, countryCodeValue); err != nil {
		return "", err
	}
	if err := writeField(&b, tagMerchantName, p.MerchantName); err != nil {
		return "", err
	}
	if err := writeField(&b, tagMerchantCity, p.MerchantCity); err != nil {
		return "", err
	}

	additional, err := encodeAdditionalData(p)
	if err != nil {
		return "", err
	}
	if additional != "" {
		if err := writeField(&b, tagAdditionalData, additional); err != nil {
			return "", err
		}
	}

	// The CRC covers everything written so far plus its own tag and length.
	b.WriteString(tagCRC)
	b.WriteString("04")
	payload := b.String()
	return payload + Checksum([]byte(payload)), nil
}

func encodeAdditionalData(p MerchantPayload) (string, error) {
	var b strings.Builder
	if p.BillNumber != "" {
		if err := writeField(&b, subTagBillNumber, p.BillNumber); err != nil {
			return "", err
		}
	}
	if p.StoreLabel != "" {
		if err := writeField(&b, subTagStoreLabel, p.StoreLabel); err != nil {
			return "", err
		}
	}
	if p.ExpiryMillis != 0 {
		if err := writeField(&b, subTagExpiry, fmt.Sprintf("%d", p.ExpiryMillis)); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}

func encodeTLV(tag, value string) (string, error) {
	var b strings.Builder
	if err := writeField(&b, tag, value); err != nil {
		return "", err
	}
	return b.String(), nil
}

func writeField(b *strings.Builder, tag, value string) error {
	if len(value) > 99 {
		return fmt.Errorf("%w: tag %s carries %d bytes", ErrPayloadTooLarge, tag, len(value))
	}
	b.WriteString(tag)
	fmt.Fprintf(b, "%02d", len(value))
	b.WriteString(value)
	return nil
}
