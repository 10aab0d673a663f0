package clientip

import (
	"net/http/httptest"
	"testing"
)

func TestFromRequest_ForwardedFor(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")

	if got := FromRequest(r); got != "203.0.113.7" {
		t.Errorf("FromRequest = %q, want %q", got, "203.0.113.7")
	}
}

func TestFromRequest_RealIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("X-Real-IP", "198.51.100.2")

	if got := FromRequest(r); got != "198.51.100.2" {
		t.Errorf("FromRequest = %q, want %q", got, "198.51.100.2")
	}
}

func TestFromRequest_RemoteAddr(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "192.0.2.10:54321"

	if got := FromRequest(r); got != "192.0.2.10" {
		t.Errorf("FromRequest = %q, want %q", got, "192.0.2.10")
	}
}

func TestFromRequest_GarbageForwardedFor(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("X-Forwarded-For", "not-an-ip")
	r.RemoteAddr = "192.0.2.10:54321"

	if got := FromRequest(r); got != "192.0.2.10" {
		t.Errorf("FromRequest = %q, want %q", got, "192.0.2.10")
	}
}
