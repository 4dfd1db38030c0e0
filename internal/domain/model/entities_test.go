package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestAccessToken_ExpiryMonotonicity(t *testing.T) {
	created := time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC)
	tok := AccessToken[uuid.UUID]{
		JTI:          "dmti_x",
		Token:        "dmat_x",
		ExpiresAfter: 5 * time.Minute,
		CreatedAt:    created,
	}

	cases := []struct {
		at    time.Time
		valid bool
	}{
		{created, true},
		{created.Add(5*time.Minute - time.Nanosecond), true},
		{created.Add(5 * time.Minute), false},
		{created.Add(5*time.Minute + time.Nanosecond), false},
	}
	for _, c := range cases {
		if got := tok.ValidAt(c.at); got != c.valid {
			t.Fatalf("ValidAt(%s) = %v, want %v", c.at, got, c.valid)
		}
	}

	compat := CompatAccessToken[uuid.UUID]{
		JTI:          "dmti_y",
		Token:        "dmct_y",
		ExpiresAfter: 5 * time.Minute,
		CreatedAt:    created,
	}
	for _, c := range cases {
		if got := compat.ValidAt(c.at); got != c.valid {
			t.Fatalf("compat ValidAt(%s) = %v, want %v", c.at, got, c.valid)
		}
	}

	// sin ExpiresAfter el token compat no expira nunca
	forever := CompatAccessToken[uuid.UUID]{JTI: "dmti_z", Token: "dmct_z", CreatedAt: created}
	if !forever.ValidAt(created.Add(100 * 365 * 24 * time.Hour)) {
		t.Fatal("compat token without TTL should never expire")
	}
}

func TestSamples_Deterministic(t *testing.T) {
	a := SampleUsers[uuid.UUID]()
	b := SampleUsers[uuid.UUID]()
	if len(a) != 1 || a[0].Username != "john" || a[0].Sub != "123-456" {
		t.Fatalf("unexpected user samples: %+v", a)
	}
	if a[0] != b[0] {
		t.Fatal("user samples should be deterministic")
	}

	bs := SampleBrowserSessions[uuid.UUID]()
	if len(bs) != 1 || bs[0].User != a[0] || bs[0].LastAuthentication != nil {
		t.Fatalf("unexpected browser session samples: %+v", bs)
	}

	ss := SampleSessions[uuid.UUID]()
	if len(ss) != 1 || ss[0].Client.ClientID != "client-1" {
		t.Fatalf("unexpected session samples: %+v", ss)
	}
	if ss[0].BrowserSession == nil || ss[0].BrowserSession.User.Username != "john" {
		t.Fatal("session sample should reference the john browser session")
	}
}

func TestEntityJSON_ExcludesBackendData(t *testing.T) {
	u := User[uuid.UUID]{Data: uuid.New(), Username: "john", Sub: "123-456"}
	raw, err := json.Marshal(u)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(raw), u.Data.String()) {
		t.Fatalf("backend data leaked into JSON: %s", raw)
	}
	if !strings.Contains(string(raw), `"username":"john"`) {
		t.Fatalf("unexpected JSON: %s", raw)
	}
}

func TestScope(t *testing.T) {
	s := ParseScope("  openid  profile openid email ")
	if s.String() != "openid profile email" {
		t.Fatalf("unexpected scope: %q", s.String())
	}
	if !s.Contains("profile") || s.Contains("prof") {
		t.Fatal("Contains mismatch")
	}

	c := s.Clone()
	c[0] = "tampered"
	if s[0] != "openid" {
		t.Fatal("Clone must be independent of the original")
	}
	if ParseScope("") != nil {
		t.Fatal("empty scope should parse to nil")
	}
}

func TestGenerateDevice(t *testing.T) {
	seen := map[Device]struct{}{}
	for i := 0; i < 200; i++ {
		d, err := GenerateDevice()
		if err != nil {
			t.Fatalf("GenerateDevice: %v", err)
		}
		if len(d) != deviceLength {
			t.Fatalf("device %q has length %d, want %d", d, len(d), deviceLength)
		}
		for _, r := range string(d) {
			if !strings.ContainsRune(deviceAlphabet, r) {
				t.Fatalf("device %q contains %q outside the alphabet", d, r)
			}
		}
		if _, dup := seen[d]; dup {
			t.Fatalf("duplicate device generated: %q", d)
		}
		seen[d] = struct{}{}
	}
}

func TestGenerateDevice_UniformAlphabet(t *testing.T) {
	// el muestreo no tiene que favorecer el principio del alfabeto
	const devices = 20000
	counts := make(map[byte]int, len(deviceAlphabet))
	for i := 0; i < devices; i++ {
		d, err := GenerateDevice()
		if err != nil {
			t.Fatalf("GenerateDevice: %v", err)
		}
		for j := 0; j < len(d); j++ {
			counts[d[j]]++
		}
	}
	mean := float64(devices*deviceLength) / float64(len(deviceAlphabet))
	for _, c := range []byte(deviceAlphabet) {
		if got := float64(counts[c]); got > mean*1.1 || got < mean*0.9 {
			t.Fatalf("character %q appeared %d times, expected around %.0f", c, counts[c], mean)
		}
	}
}
