package httpserver

import (
	"io"
	"net/http"

	"beatsphere/internal/domain"
	"github.com/gin-gonic/gin"
)

type sessionHandler struct {
	sessions SessionStore
	accounts AccountService
}

type sessionView struct {
	Authenticated bool        `json:"authenticated"`
	UserID        *domain.ID  `json:"userId"`
	Role          domain.Role `json:"role"`
}

func newSessionView(s domain.Session) sessionView {
	v := sessionView{Authenticated: s.Authenticated(), Role: s.EffectiveRole()}
	if v.Authenticated {
		id := s.UserID
		v.UserID = &id
	}
	return v
}

type loginRequest struct {
	Email          string `json:"email" binding:"required"`
	Password       string `json:"password" binding:"required"`
	ChallengeToken string `json:"recaptchaToken"`
}

type registerRequest struct {
	Email          string `json:"email" binding:"required,email"`
	Password       string `json:"password" binding:"required,min=6"`
	Role           string `json:"rol"`
	ChallengeToken string `json:"recaptchaToken"`
}

func (h *sessionHandler) get(c *gin.Context) {
	c.JSON(http.StatusOK, newSessionView(h.sessions.Current()))
}

func (h *sessionHandler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	sess, err := h.sessions.Authenticate(c.Request.Context(), domain.Credentials{
		Email:          req.Email,
		Password:       req.Password,
		ChallengeToken: req.ChallengeToken,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionView(sess))
}

func (h *sessionHandler) logout(c *gin.Context) {
	h.sessions.Logout(c.Request.Context())
	c.JSON(http.StatusOK, newSessionView(domain.Session{}))
}

func (h *sessionHandler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	role := domain.ParseRole(req.Role)
	if role == domain.RoleUnset {
		role = domain.RoleUser
	}
	err := h.accounts.Register(c.Request.Context(), domain.Registration{
		Email:          req.Email,
		Password:       req.Password,
		Role:           accountRole(role),
		ChallengeToken: req.ChallengeToken,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"email": req.Email, "role": role})
}

// accountRole is the account service's spelling of a role.
func accountRole(r domain.Role) string {
	if r == domain.RoleArtist {
		return "artista"
	}
	return "usuario"
}

func (h *sessionHandler) events(c *gin.Context) {
	updates := make(chan domain.Session, 1)
	unsubscribe := h.sessions.Subscribe(func(s domain.Session) {
		offerLatest(updates, s)
	})
	defer unsubscribe()

	c.SSEvent("session", newSessionView(h.sessions.Current()))
	c.Writer.Flush()
	c.Stream(func(io.Writer) bool {
		select {
		case s := <-updates:
			c.SSEvent("session", newSessionView(s))
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
