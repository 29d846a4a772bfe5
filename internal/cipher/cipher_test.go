package cipher

import (
	"encoding/hex"
	"strings"
	"testing"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
	}{
		{"aes-256-gcm", AES256GCM},
		{"AES-128-GCM", AES128GCM},
		{" chacha20-ietf-poly1305 ", Chacha20IETFPoly1305},
		{"AEAD_CHACHA20_POLY1305", Chacha20IETFPoly1305},
		{"aead_aes_256_gcm", AES256GCM},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if err != nil {
			t.Fatalf("ParseKind(%q) unexpected err: %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseKind(%q)=%q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseKind_Unsupported(t *testing.T) {
	for _, in := range []string{"", "rc4-md5", "aes-256-cfb", "dummy"} {
		_, err := ParseKind(in)
		if err == nil {
			t.Fatalf("ParseKind(%q) expected error", in)
		}
		if !strings.Contains(err.Error(), "aes-256-gcm") {
			t.Fatalf("err=%q, want it to list available methods", err.Error())
		}
	}
}

func TestKeySize(t *testing.T) {
	if got := AES128GCM.KeySize(); got != 16 {
		t.Fatalf("aes-128-gcm key size=%d, want 16", got)
	}
	if got := Chacha20IETFPoly1305.KeySize(); got != 32 {
		t.Fatalf("chacha20 key size=%d, want 32", got)
	}
	if got := Kind("nope").KeySize(); got != 0 {
		t.Fatalf("unknown key size=%d, want 0", got)
	}
}

func TestKDF_MatchesEVPBytesToKey(t *testing.T) {
	// md5("foobar") followed by md5(md5("foobar") || "foobar")
	got := hex.EncodeToString(kdf("foobar", 32))
	want := "3858f62230ac3c915f300c664312c63f568378529614d22ddb49237d2f60bfdf"
	if got != want {
		t.Fatalf("kdf=%s, want %s", got, want)
	}
	if got := hex.EncodeToString(kdf("foobar", 16)); got != want[:32] {
		t.Fatalf("kdf(16)=%s, want %s", got, want[:32])
	}
}

func TestNew(t *testing.T) {
	for _, k := range []Kind{AES128GCM, AES256GCM, Chacha20IETFPoly1305} {
		if _, err := New(k, "secret"); err != nil {
			t.Fatalf("New(%s) unexpected err: %v", k, err)
		}
	}
	if _, err := New(AES256GCM, ""); err == nil {
		t.Fatalf("expected error for empty password")
	}
	if _, err := New("rc4", "secret"); err == nil {
		t.Fatalf("expected error for unsupported kind")
	}
}
