package netutil

import (
	"net/http"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNormalizeIP(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{in: "192.0.2.4:51234", want: "192.0.2.4", ok: true},
		{in: "[2001:db8::1]:443", want: "2001:db8::1", ok: true},
		{in: "[::1]:port", want: "::1", ok: true},
		{in: " 203.0.113.9 ", want: "203.0.113.9", ok: true},
		{in: "fe80::1%eth0", want: "fe80::1", ok: true},
		{in: "localhost:80", want: "localhost:80", ok: false},
		{in: "", want: "", ok: false},
	}
	for _, tc := range tests {
		got, ok := NormalizeIP(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("NormalizeIP(%q) = %q, %v; want %q, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestClientIP(t *testing.T) {
	h := http.Header{}
	if got := ClientIP(h, "192.0.2.10:4242"); got != "192.0.2.10" {
		t.Fatalf("remote addr: got %q", got)
	}
	h.Set("X-Real-IP", "198.51.100.7")
	if got := ClientIP(h, "192.0.2.10:4242"); got != "198.51.100.7" {
		t.Fatalf("x-real-ip: got %q", got)
	}
	h.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := ClientIP(h, "192.0.2.10:4242"); got != "203.0.113.9" {
		t.Fatalf("x-forwarded-for: got %q", got)
	}
	h.Set("X-Forwarded-For", "garbage")
	if got := ClientIP(h, "192.0.2.10:4242"); got != "198.51.100.7" {
		t.Fatalf("bad xff should fall through: got %q", got)
	}
}

func TestTruncateUserAgent(t *testing.T) {
	long := strings.Repeat("é", MaxUserAgentLength+10)
	got := TruncateUserAgent(long)
	if n := utf8.RuneCountInString(got); n != MaxUserAgentLength {
		t.Fatalf("expected %d runes, got %d", MaxUserAgentLength, n)
	}
	if !utf8.ValidString(got) {
		t.Fatal("truncation split a rune")
	}
	if TruncateUserAgent("curl/8.5") != "curl/8.5" {
		t.Fatal("short agent changed")
	}
}
