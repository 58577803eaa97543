package payment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testSecret = []byte("whsec_test")

func TestVerifySignatureRoundTrip(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)
	header := SignHeader(payload, time.Now().Unix(), testSecret)

	require.NoError(t, VerifySignature(payload, header, testSecret, DefaultTolerance))
}

func TestVerifySignatureRejectsTamperedPayload(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	header := SignHeader(payload, time.Now().Unix(), testSecret)

	err := VerifySignature([]byte(`{"id":"evt_2"}`), header, testSecret, DefaultTolerance)
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifySignatureRejectsWrongSecret(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	header := SignHeader(payload, time.Now().Unix(), []byte("other-secret"))

	err := VerifySignature(payload, header, testSecret, DefaultTolerance)
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifySignatureRejectsStaleTimestamp(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	header := SignHeader(payload, time.Now().Add(-10*time.Minute).Unix(), testSecret)

	err := VerifySignature(payload, header, testSecret, DefaultTolerance)
	require.ErrorIs(t, err, ErrStaleTimestamp)
}

func TestVerifySignatureMalformedHeaders(t *testing.T) {
	payload := []byte(`{}`)
	for _, header := range []string{
		"",
		"garbage",
		"t=abc,v1=00",
		"t=123",
		"v1=00",
	} {
		err := VerifySignature(payload, header, testSecret, 0)
		require.Error(t, err, "header %q", header)
	}
}

func TestParseEvent(t *testing.T) {
	ev, err := ParseEvent([]byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"id":"cs_1","amount_total":4499}}}`))
	require.NoError(t, err)
	require.Equal(t, EventCheckoutCompleted, ev.Type)

	s, err := ev.CheckoutSession()
	require.NoError(t, err)
	require.Equal(t, "cs_1", s.ID)
	require.Equal(t, int64(4499), s.AmountTotal)

	_, err = ParseEvent([]byte(`{"id":"evt_1"}`))
	require.Error(t, err)

	_, err = ParseEvent([]byte(`not json`))
	require.Error(t, err)
}
