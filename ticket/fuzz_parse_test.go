package ticket

import (
	"testing"
	"time"
)

// FuzzTicketParse feeds arbitrary strings to the ticket parser. Invalid input
// must be rejected with an error, never a panic.
func FuzzTicketParse(f *testing.F) {
	s, err := NewSigner(Config{
		SigningMethod: MethodHS256,
		PrivateKey:    []byte("fuzz-key-fuzz-key-fuzz-key-fuzz-"),
		Issuer:        "fuzz",
		Leeway:        30 * time.Second,
	})
	if err != nil {
		f.Fatal(err)
	}

	now := time.Now()
	valid, err := s.Issue("sid", "uid", "web", now, now.Add(time.Hour))
	if err != nil {
		f.Fatal(err)
	}

	f.Add(valid)
	f.Add("")
	f.Add("a.b.c")
	f.Add("eyJhbGciOiJub25lIn0.e30.")
	f.Add(valid[:len(valid)/2])

	f.Fuzz(func(t *testing.T, token string) {
		claims, err := s.Parse(token)
		if err == nil && (claims == nil || claims.SID == "") {
			t.Fatal("accepted ticket without session id")
		}
	})
}
