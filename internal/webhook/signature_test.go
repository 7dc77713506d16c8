package webhook_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-marketplace-mirror/internal/adapter"
	"github.com/feral-file/ff-marketplace-mirror/internal/webhook"
)

func TestSign(t *testing.T) {
	t.Run("matches reference vector", func(t *testing.T) {
		signature := webhook.Sign("secret", []byte("hello"))
		assert.Equal(t, "sha256=88aab3ede8d3adf94d26ab90d3bafd4a2083070c3bcce9c014ee04a443847c0b", signature)
	})

	t.Run("different secrets produce different signatures", func(t *testing.T) {
		body := []byte(`{"id":"1"}`)
		assert.NotEqual(t, webhook.Sign("secret-a", body), webhook.Sign("secret-b", body))
	})
}

func TestVerify(t *testing.T) {
	body := []byte(`{"data":{},"event":"TRANSFER","id":"d1"}`)
	signature := webhook.Sign("secret", body)

	tests := []struct {
		name      string
		secret    string
		body      []byte
		signature string
		want      bool
	}{
		{name: "valid", secret: "secret", body: body, signature: signature, want: true},
		{name: "tampered body", secret: "secret", body: []byte(`{"data":{},"event":"TRANSFER","id":"d2"}`), signature: signature, want: false},
		{name: "wrong secret", secret: "other", body: body, signature: signature, want: false},
		{name: "tampered signature", secret: "secret", body: body, signature: signature[:len(signature)-1] + "0", want: false},
		{name: "missing prefix", secret: "secret", body: body, signature: signature[len("sha256="):], want: false},
		{name: "not hex", secret: "secret", body: body, signature: "sha256=zz", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, webhook.Verify(tt.secret, tt.body, tt.signature))
		})
	}
}

func TestSignedBody(t *testing.T) {
	// keys deliberately out of order; the canonical form sorts them
	data := json.RawMessage(`{
		"txHash": "0x123",
		"tokenId": "7",
		"to": "0x0000000000000000000000000000000000000000000000000000000000000abc",
		"logIndex": 0,
		"from": "0x0000000000000000000000000000000000000000000000000000000000000000",
		"contractAddress": "0x05e73b7be06d82beeb390a0e0d655f2c9e7cf519658e04f05d9c690ccc41da03",
		"blockNumber": "6204300"
	}`)

	body, signature, err := webhook.SignedBody(adapter.NewJCS(), "whsec_test", webhook.DeliveryBody{
		ID:    "3f1c2b8e-5d4a-4c3b-9e2f-1a2b3c4d5e6f",
		Event: "TRANSFER",
		Data:  data,
	})
	require.NoError(t, err)

	expected := `{"data":{"blockNumber":"6204300",` +
		`"contractAddress":"0x05e73b7be06d82beeb390a0e0d655f2c9e7cf519658e04f05d9c690ccc41da03",` +
		`"from":"0x0000000000000000000000000000000000000000000000000000000000000000",` +
		`"logIndex":0,` +
		`"to":"0x0000000000000000000000000000000000000000000000000000000000000abc",` +
		`"tokenId":"7","txHash":"0x123"},` +
		`"event":"TRANSFER","id":"3f1c2b8e-5d4a-4c3b-9e2f-1a2b3c4d5e6f"}`
	assert.Equal(t, expected, string(body))
	assert.Equal(t, "sha256=f0bb625ccfc7863d98b4dd9c3c655b5af9602e56425c5ea153377356f0682419", signature)
	assert.True(t, webhook.Verify("whsec_test", body, signature))
}
