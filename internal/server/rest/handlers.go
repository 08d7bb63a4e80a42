package rest

import (
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/accountsvc/internal/common"
	"github.com/dmitrijs2005/accountsvc/internal/server/models"
	"github.com/dmitrijs2005/accountsvc/internal/server/services"
	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	Name     string `json:"name" form:"name"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type authenticateRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type sessionData struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type sessionResponse struct {
	Token string      `json:"token"`
	Data  sessionData `json:"data"`
}

type userView struct {
	ID      string        `json:"id"`
	Name    string        `json:"name"`
	Email   string        `json:"email"`
	Active  bool          `json:"active"`
	Roles   []models.Role `json:"roles"`
	Created time.Time     `json:"created"`
}

func newUserView(u *models.User) userView {
	roles := u.Roles
	if roles == nil {
		roles = []models.Role{}
	}
	return userView{
		ID:      u.ID,
		Name:    u.Name,
		Email:   u.Email,
		Active:  u.Active,
		Roles:   roles,
		Created: u.CreatedAt,
	}
}

func newSessionResponse(s *services.Session) sessionResponse {
	return sessionResponse{
		Token: s.Token,
		Data:  sessionData{Name: s.Claims.Name, Email: s.Claims.Email},
	}
}

var errMalformedBody = common.NewValidationError("body", "request body is malformed")

func (s *Server) index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"title": s.opts.ProjectName, "version": s.opts.Version})
}

func (s *Server) createUser(c *gin.Context) {
	var req registerRequest
	if err := bind(c, &req); err != nil {
		writeError(c, s.logger, err)
		return
	}

	// roles are never taken from public signups
	_, err := s.users.Register(c.Request.Context(), services.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(c, s.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User created"})
}

func (s *Server) authenticate(c *gin.Context) {
	var req authenticateRequest
	if err := bind(c, &req); err != nil {
		writeError(c, s.logger, err)
		return
	}

	session, err := s.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, s.logger, err)
		return
	}

	c.JSON(http.StatusOK, newSessionResponse(session))
}

func (s *Server) refreshToken(c *gin.Context, p Principal) {
	session, err := s.users.RefreshToken(c.Request.Context(), p.Token)
	if err != nil {
		writeError(c, s.logger, err)
		return
	}

	c.JSON(http.StatusOK, newSessionResponse(session))
}

func (s *Server) listUsers(c *gin.Context, _ Principal) {
	all, err := s.users.List(c.Request.Context())
	if err != nil {
		writeError(c, s.logger, err)
		return
	}

	views := make([]userView, 0, len(all))
	for _, u := range all {
		views = append(views, newUserView(u))
	}
	c.JSON(http.StatusOK, views)
}

func (s *Server) getUser(c *gin.Context, _ Principal) {
	u, err := s.users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, s.logger, err)
		return
	}

	c.JSON(http.StatusOK, newUserView(u))
}

// bind decodes a JSON or urlencoded body. An empty body binds to the zero
// value so the service reports the missing fields.
func bind(c *gin.Context, dst any) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBind(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return common.NewValidationError("body", "request body is too large")
		}
		return errMalformedBody
	}
	return nil
}
