package rest

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/dmitrijs2005/accountsvc/internal/common"
	"github.com/dmitrijs2005/accountsvc/internal/server/auth"
	"github.com/dmitrijs2005/accountsvc/internal/server/models"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// TokenVerifier checks a bearer token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (*models.Claims, error)
}

// Decision is the outcome of a guard check. Exactly one of Claims and Err
// is set.
type Decision struct {
	Token  string
	Claims *models.Claims
	Err    error
}

func (d Decision) Authorized() bool {
	return d.Err == nil && d.Claims != nil
}

// Principal is what a protected handler receives: the verified claims and
// the token they came from.
type Principal struct {
	Token  string
	Claims models.Claims
}

type ProtectedHandler func(c *gin.Context, p Principal)

type Guard struct {
	verifier TokenVerifier
}

func NewGuard(v TokenVerifier) *Guard {
	return &Guard{verifier: v}
}

// Check extracts the token (body field, then query parameter, then header)
// and verifies it.
func (g *Guard) Check(c *gin.Context) Decision {
	token := extractToken(c)
	if token == "" {
		return Decision{Err: common.ErrMissingToken}
	}

	claims, err := g.verifier.Verify(token)
	if err != nil {
		return Decision{Token: token, Err: err}
	}
	return Decision{Token: token, Claims: claims}
}

// Protect runs h only for authorized requests. Everything else is aborted
// with 401 before h is reached.
func (g *Guard) Protect(h ProtectedHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		d := g.Check(c)
		if !d.Authorized() {
			abortWithError(c, d.Err)
			return
		}

		c.Request = c.Request.WithContext(auth.WithClaims(c.Request.Context(), d.Claims))
		h(c, Principal{Token: d.Token, Claims: *d.Claims})
	}
}

func extractToken(c *gin.Context) string {
	if t := bodyToken(c); t != "" {
		return t
	}
	if t := c.Query(common.AccessTokenField); t != "" {
		return t
	}
	return c.GetHeader(common.AccessTokenHeaderName)
}

// bodyToken reads the token field from a JSON or urlencoded body. A JSON
// body is restored so handlers can bind it afterwards.
func bodyToken(c *gin.Context) string {
	if c.Request.Body == nil {
		return ""
	}

	switch c.ContentType() {
	case binding.MIMEJSON:
		raw, err := io.ReadAll(c.Request.Body)
		c.Request.Body = io.NopCloser(bytes.NewReader(raw))
		if err != nil || len(raw) == 0 {
			return ""
		}
		var body struct {
			Token string `json:"token"`
		}
		if err := json.Unmarshal(raw, &body); err != nil {
			return ""
		}
		return body.Token
	case binding.MIMEPOSTForm:
		return c.PostForm(common.AccessTokenField)
	default:
		return ""
	}
}
