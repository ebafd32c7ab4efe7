package khqr

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maiyoury/pkasla/pkg/enums"
)

func testPayload() MerchantPayload {
	amount := decimal.NewFromInt(1000)
	return MerchantPayload{
		MerchantAccountID: "merchant@devb",
		MerchantName:      "Pkasla",
		MerchantCity:      "Phnom Penh",
		MerchantCategory:  "5947",
		Currency:          enums.CurrencyKHR,
		Amount:            &amount,
		BillNumber:        "TXN-1700000000000-abc1234",
		StoreLabel:        "Subscription: Premium",
		ExpiryMillis:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli(),
	}
}

func TestChecksumReferenceVectors(t *testing.T) {
	// CRC-16/CCITT-FALSE of the empty input is the initial register.
	assert.Equal(t, "FFFF", Checksum(nil))
	// The standard check value for this CRC variant.
	assert.Equal(t, "29B1", Checksum([]byte("123456789")))
}

func TestChecksumDeterministic(t *testing.T) {
	data := []byte("00020101021229")
	first := Checksum(data)
	for i := 0; i < 10; i++ {
		require.Equal(t, first, Checksum(data))
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := testPayload()

	encoded, err := Encode(in)
	require.NoError(t, err)

	out, err := Decode(encoded)
	require.NoError(t, err)

	assert.Equal(t, in.MerchantAccountID, out.MerchantAccountID)
	assert.Equal(t, in.MerchantName, out.MerchantName)
	assert.Equal(t, in.MerchantCity, out.MerchantCity)
	assert.Equal(t, in.MerchantCategory, out.MerchantCategory)
	assert.Equal(t, in.Currency, out.Currency)
	assert.Equal(t, in.BillNumber, out.BillNumber)
	assert.Equal(t, in.StoreLabel, out.StoreLabel)
	assert.Equal(t, in.ExpiryMillis, out.ExpiryMillis)
	require.NotNil(t, out.Amount)
	assert.True(t, in.Amount.Equal(*out.Amount))
}

func TestEncodeAmountFormatting(t *testing.T) {
	t.Run("riel amounts are integer strings", func(t *testing.T) {
		p := testPayload()
		amount := decimal.NewFromInt(1000)
		p.Amount = &amount
		p.Currency = enums.CurrencyKHR

		encoded, err := Encode(p)
		require.NoError(t, err)
		assert.Contains(t, encoded, "5404"+"1000")
	})

	t.Run("dollar amounts carry two decimals", func(t *testing.T) {
		p := testPayload()
		amount := decimal.RequireFromString("19.99")
		p.Amount = &amount
		p.Currency = enums.CurrencyUSD

		encoded, err := Encode(p)
		require.NoError(t, err)
		assert.Contains(t, encoded, "5405"+"19.99")
	})

	t.Run("whole dollar amounts are zero padded", func(t *testing.T) {
		p := testPayload()
		amount := decimal.NewFromInt(10)
		p.Amount = &amount
		p.Currency = enums.CurrencyUSD

		encoded, err := Encode(p)
		require.NoError(t, err)
		assert.Contains(t, encoded, "5405"+"10.00")
	})
}

func TestEncodeStaticWithoutAmount(t *testing.T) {
	p := testPayload()
	p.Amount = nil
	p.ExpiryMillis = 0

	encoded, err := Encode(p)
	require.NoError(t, err)
	// Static codes declare point-of-initiation 11 and omit the amount field.
	assert.Contains(t, encoded, "010211")
	assert.NotContains(t, encoded, "5404")
}

func TestEncodeDynamicDeclaresPointOfInitiation(t *testing.T) {
	encoded, err := Encode(testPayload())
	require.NoError(t, err)
	assert.Contains(t, encoded, "010212")
}

func TestEncodeAmountWithoutExpiryFails(t *testing.T) {
	p := testPayload()
	p.ExpiryMillis = 0

	_, err := Encode(p)
	require.ErrorIs(t, err, ErrMissingExpiry)
}

func TestEncodeOversizedFieldFails(t *testing.T) {
	p := testPayload()
	p.MerchantName = strings.Repeat("a", 100)

	_, err := Encode(p)
	require.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestEncodeTrailerMatchesChecksum(t *testing.T) {
	encoded, err := Encode(testPayload())
	require.NoError(t, err)

	require.Greater(t, len(encoded), 8)
	assert.Equal(t, "6304", encoded[len(encoded)-8:len(encoded)-4])
	assert.True(t, VerifyChecksum(encoded))
}

func TestDecodeRejectsTamperedPayload(t *testing.T) {
	encoded, err := Encode(testPayload())
	require.NoError(t, err)

	tampered := []byte(encoded)
	tampered[10] ^= 0x01
	_, err = Decode(string(tampered))
	require.ErrorIs(t, err, ErrChecksumMismatch)
}

func TestDecodeRejectsTruncatedPayload(t *testing.T) {
	_, err := Decode("000201")
	require.ErrorIs(t, err, ErrMalformedPayload)
}
