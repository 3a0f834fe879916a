package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func identityRouter() *gin.Engine {
	router := gin.New()
	router.Use(IdentityResolver())
	router.GET("/whoami", func(c *gin.Context) {
		identity, ok := GetIdentity(c)
		c.JSON(http.StatusOK, gin.H{"known": ok, "email": identity.Email, "name": identity.Name})
	})
	return router
}

func TestIdentityResolver(t *testing.T) {
	tests := []struct {
		name      string
		headers   map[string]string
		cookies   []*http.Cookie
		wantKnown bool
		wantEmail string
		wantName  string
	}{
		{
			name:      "headers",
			headers:   map[string]string{"X-User-Email": "jane@example.com", "X-User-Name": "Jane"},
			wantKnown: true,
			wantEmail: "jane@example.com",
			wantName:  "Jane",
		},
		{
			name:      "lowercase header names",
			headers:   map[string]string{"x-user-email": "jane@example.com"},
			wantKnown: true,
			wantEmail: "jane@example.com",
			wantName:  UnknownUserName,
		},
		{
			name:      "cookies",
			cookies:   []*http.Cookie{{Name: "user_email", Value: "bob%40example.com"}, {Name: "user_name", Value: "Bob"}},
			wantKnown: true,
			wantEmail: "bob@example.com",
			wantName:  "Bob",
		},
		{
			name:      "nothing degrades to unknown caller",
			wantKnown: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			for _, cookie := range tt.cookies {
				req.AddCookie(cookie)
			}

			w := httptest.NewRecorder()
			identityRouter().ServeHTTP(w, req)

			require.Equal(t, http.StatusOK, w.Code)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantKnown, body["known"])
			if tt.wantKnown {
				assert.Equal(t, tt.wantEmail, body["email"])
				assert.Equal(t, tt.wantName, body["name"])
			}
		})
	}
}

func TestCorrelationID(t *testing.T) {
	router := gin.New()
	router.Use(CorrelationID())
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, GetCorrelationID(c))
	})

	t.Run("propagates incoming id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(CorrelationIDHeader, "req-123")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "req-123", w.Body.String())
		assert.Equal(t, "req-123", w.Header().Get(CorrelationIDHeader))
	})

	t.Run("generates id when missing", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.NotEmpty(t, w.Body.String())
		assert.Equal(t, w.Body.String(), w.Header().Get(CorrelationIDHeader))
	})
}

func TestRecovery(t *testing.T) {
	router := gin.New()
	router.Use(Recovery())
	router.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Nil(t, body["error"].(map[string]interface{})["details"], "no request id without the correlation middleware")
	assert.Equal(t, float64(1), testutil.ToFloat64(panicsTotal.WithLabelValues("/panic")))
}

func TestRecovery_ReportsRequestID(t *testing.T) {
	router := gin.New()
	router.Use(Recovery())
	router.Use(CorrelationID())
	router.POST("/giftcards/:id/redeem", func(c *gin.Context) {
		panic("nil card")
	})

	req := httptest.NewRequest(http.MethodPost, "/giftcards/42/redeem", nil)
	req.Header.Set(CorrelationIDHeader, "req-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	details := body["error"].(map[string]interface{})["details"].(map[string]interface{})
	assert.Equal(t, "req-123", details["request_id"])
}

func TestMetrics_ShopLabel(t *testing.T) {
	router := gin.New()
	router.Use(Metrics("metrics-test"))
	router.GET("/giftcards/:id", func(c *gin.Context) {
		SetShop(c, "a.myshopify.com")
		c.Status(http.StatusOK)
	})
	router.GET("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/giftcards/42", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, float64(1), testutil.ToFloat64(
		httpRequestsTotal.WithLabelValues("metrics-test", http.MethodGet, "/giftcards/:id", "200", "a.myshopify.com")))
	assert.Equal(t, float64(1), testutil.ToFloat64(
		httpRequestsTotal.WithLabelValues("metrics-test", http.MethodGet, "/healthz", "200", noShop)))
}

type reloadBody struct {
	Amount decimal.Decimal `json:"amount" validate:"positive_decimal"`
}

func TestValidateAndBind(t *testing.T) {
	router := gin.New()
	router.POST("/reload", func(c *gin.Context) {
		var req reloadBody
		if !ValidateAndBind(c, &req) {
			return
		}
		c.JSON(http.StatusOK, gin.H{"amount": req.Amount.String()})
	})

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantBody   string
	}{
		{"numeric amount", `{"amount": 20}`, http.StatusOK, `"20"`},
		{"string amount", `{"amount": "12.50"}`, http.StatusOK, `"12.5"`},
		{"zero amount", `{"amount": 0}`, http.StatusBadRequest, "greater than 0"},
		{"malformed json", `{"amount":`, http.StatusBadRequest, "Invalid request format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/reload", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	router := gin.New()
	router.Use(SecurityHeaders())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}
