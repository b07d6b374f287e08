package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
)

func TestJWTUtil_SignAndValidate(t *testing.T) {
	ju := NewJWTUtil("HS256", "secret", "token", time.Minute)
	tokenStr, err := ju.GenerateTokenStr("u1")
	if err != nil {
		t.Fatal(err)
	}
	claims, err := ju.Validate(tokenStr)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if claims.UID != "u1" {
		t.Fatalf("UID = %q", claims.UID)
	}
	if r := claims.TimeRemaining(); r <= 0 || r > time.Minute {
		t.Fatalf("TimeRemaining() = %v", r)
	}

	other := NewJWTUtil("HS256", "other", "token", time.Minute)
	if _, err := other.Validate(tokenStr); err == nil {
		t.Fatal("token signed with another secret must be rejected")
	}
}

func TestJWTUtil_Expired(t *testing.T) {
	ju := NewJWTUtil("HS256", "secret", "token", time.Minute)
	tokenStr, _ := ju.Sign(&AppTokenClaims{
		UID:            "u1",
		StandardClaims: jwt.StandardClaims{ExpiresAt: time.Now().Add(-time.Minute).Unix()},
	})
	if _, err := ju.Validate(tokenStr); err == nil {
		t.Fatal("expired token must be rejected")
	}
}

func TestJWTUtil_ExtractToken(t *testing.T) {
	ju := NewJWTUtil("HS256", "secret", "token", time.Minute)
	e := echo.New()

	cases := map[string]struct {
		setup func(r *http.Request)
		want  string
		err   bool
	}{
		"cookie": {
			setup: func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "token", Value: "c"}) },
			want:  "c",
		},
		"bearer": {
			setup: func(r *http.Request) { r.Header.Set(echo.HeaderAuthorization, "Bearer b") },
			want:  "b",
		},
		"missing": {
			setup: func(r *http.Request) {},
			err:   true,
		},
		"malformed header": {
			setup: func(r *http.Request) { r.Header.Set(echo.HeaderAuthorization, "Basic abc") },
			err:   true,
		},
	}
	for name, c := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		c.setup(req)
		ctx := e.NewContext(req, httptest.NewRecorder())
		got, err := ju.ExtractToken(ctx)
		if (err != nil) != c.err {
			t.Fatalf("%s: ExtractToken() error = %v", name, err)
		}
		if got != c.want {
			t.Fatalf("%s: ExtractToken() = %q, want %q", name, got, c.want)
		}
	}
}
