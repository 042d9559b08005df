package session

import (
	"testing"
)

// FuzzSessionDecode exercises the binary blob decoder with arbitrary inputs.
func FuzzSessionDecode(f *testing.F) {
	encoded, err := Encode(&Blob{
		UserID:    "user1",
		Platform:  "web",
		CreatedAt: 1700000000,
		ExpiresAt: 1700086400,
	})
	if err == nil {
		f.Add(encoded)
	}

	f.Add([]byte{})
	f.Add([]byte{0})
	f.Add([]byte{1})
	f.Add([]byte{1, 255, 255})

	if len(encoded) > 6 {
		f.Add(encoded[:6])
	}
	if len(encoded) > 12 {
		f.Add(encoded[:12])
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		b, err := Decode(data)
		if err != nil {
			return
		}
		if len(b.UserID) > 0 {
			_, _ = Encode(b)
		}
	})
}
