package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestResolveCountry(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(r *http.Request)
		lookup CountryLookup
		want   string
	}{
		{
			name: "edge header",
			setup: func(r *http.Request) {
				r.Header.Set("CF-IPCountry", "id")
			},
			want: "ID",
		},
		{
			name: "unknown edge value ignored",
			setup: func(r *http.Request) {
				r.Header.Set("CF-IPCountry", "XX")
			},
			lookup: func(ip string) (string, error) { return "sg", nil },
			want:   "SG",
		},
		{
			name: "lookup receives forwarded ip",
			setup: func(r *http.Request) {
				r.Header.Set("X-Forwarded-For", "203.0.113.5")
			},
			lookup: func(ip string) (string, error) {
				if ip != "203.0.113.5" {
					return "", errors.New("unexpected ip " + ip)
				}
				return "AU", nil
			},
			want: "AU",
		},
		{
			name:   "lookup error",
			lookup: func(ip string) (string, error) { return "", errors.New("closed") },
			want:   "",
		},
		{
			name: "no lookup",
			want: "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.setup != nil {
				tc.setup(req)
			}
			if got := ResolveCountry(req, tc.lookup); got != tc.want {
				t.Fatalf("ResolveCountry() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestCountryMiddlewareStoresCode(t *testing.T) {
	var got string
	h := Country(func(string) (string, error) { return "jp", nil })(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = CountryFromContext(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if got != "JP" {
		t.Fatalf("CountryFromContext() = %q", got)
	}
}
