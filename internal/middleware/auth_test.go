package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quoteportal/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	if _, ok := claims["exp"]; !ok {
		claims["exp"] = time.Now().Add(time.Hour).Unix()
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)
	return s
}

func TestParseToken_MapsClaims(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"sub":         "u1",
		"email":       "hod@example.com",
		"role":        "HOD",
		"name":        "Hana",
		"department":  "IT",
		"permissions": []string{model.PermAuditRead},
	})

	p, err := ParseToken(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, model.Principal{
		ID:          "u1",
		Email:       "hod@example.com",
		Role:        model.RoleHOD,
		Name:        "Hana",
		Department:  "IT",
		Permissions: []string{model.PermAuditRead},
	}, p)
}

func TestParseToken_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		claims jwt.MapClaims
		secret []byte
	}{
		{"unknown role", jwt.MapClaims{"sub": "u1", "role": "Intern"}, testSecret},
		{"missing subject", jwt.MapClaims{"role": "Employee"}, testSecret},
		{"expired", jwt.MapClaims{"sub": "u1", "role": "Employee", "exp": time.Now().Add(-time.Hour).Unix()}, testSecret},
		{"wrong secret", jwt.MapClaims{"sub": "u1", "role": "Employee"}, []byte("other")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := signToken(t, tt.claims)
			_, err := ParseToken(tt.secret, token)
			assert.Error(t, err)
		})
	}
}

func newRouter(extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := append([]gin.HandlerFunc{Authenticate(testSecret)}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		p, _ := PrincipalFrom(c)
		c.String(http.StatusOK, p.ID)
	})
	r.GET("/", handlers...)
	return r
}

func TestAuthenticate(t *testing.T) {
	r := newRouter()
	token := signToken(t, jwt.MapClaims{"sub": "u1", "role": "Employee"})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1", w.Body.String())

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: token})
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Token "+token)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRole(t *testing.T) {
	r := newRouter(RequireRole(model.RoleHOD, model.RoleFinance))

	for role, want := range map[string]int{
		"Employee": http.StatusForbidden,
		"HOD":      http.StatusOK,
		"Finance":  http.StatusOK,
	} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, jwt.MapClaims{"sub": "u1", "role": role}))
		r.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code, role)
	}
}

func TestRequirePermission(t *testing.T) {
	r := newRouter(RequirePermission(model.PermUsersRead))

	cases := []struct {
		claims jwt.MapClaims
		want   int
	}{
		{jwt.MapClaims{"sub": "u1", "role": "Finance"}, http.StatusForbidden},
		{jwt.MapClaims{"sub": "u1", "role": "Finance", "permissions": []string{model.PermUsersRead}}, http.StatusOK},
		{jwt.MapClaims{"sub": "u1", "role": "Admin"}, http.StatusOK},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, tc.claims))
		r.ServeHTTP(w, req)
		assert.Equal(t, tc.want, w.Code, tc.claims)
	}
}
