package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	walletAdapter "github.com/polkiloo/bitlend/internal/adapter/wallet"
	domainErrors "github.com/polkiloo/bitlend/internal/domain/errors"
	"github.com/polkiloo/bitlend/internal/domain/model"
	"github.com/polkiloo/bitlend/internal/server/http/dto"
	"github.com/polkiloo/bitlend/internal/server/http/middleware"
)

// AuthHandler processes registration, login and wallet connection.
type AuthHandler struct {
	facade AuthFacade
}

// NewAuthHandler creates AuthHandler instance.
func NewAuthHandler(facade AuthFacade) *AuthHandler {
	return &AuthHandler{facade: facade}
}

// Register handles POST /api/user/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.AuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid_request")
		return
	}

	session, err := h.facade.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domainErrors.ErrInvalidCredentials) {
			respondStatus(c, http.StatusBadRequest, err)
			return
		}
		respondError(c, err)
		return
	}

	middleware.SetAuthCookie(c, session.Token)
	c.JSON(http.StatusOK, toSessionResponse(session, true))
}

// Login handles POST /api/user/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.AuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid_request")
		return
	}

	session, err := h.facade.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	middleware.SetAuthCookie(c, session.Token)
	c.JSON(http.StatusOK, toSessionResponse(session, true))
}

// ConnectWallet handles GET /api/user/wallet/connect. The connection is
// upgraded to a WebSocket and the signer on the other end answers the
// challenge; the outcome is reported on the socket before it closes.
func (h *AuthHandler) ConnectWallet(c *gin.Context) {
	conn, err := walletAdapter.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader has already replied
		return
	}
	provider := walletAdapter.NewProvider(conn)
	defer provider.Close()

	session, err := h.facade.ConnectWallet(c.Request.Context(), provider)
	if err != nil {
		if StatusFor(err) >= http.StatusInternalServerError {
			_ = c.Error(err)
		}
		_ = provider.Fail(domainErrors.Code(err))
		return
	}
	_ = provider.Complete(session.Token)
}

// Session handles GET /api/user/session. A missing or dead session is
// reported as unauthenticated rather than as an error.
func (h *AuthHandler) Session(c *gin.Context) {
	session, err := h.facade.CurrentSession(c.Request.Context(), middleware.ExtractToken(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if session == nil {
		c.JSON(http.StatusOK, dto.SessionResponse{State: string(model.SessionUnauthenticated)})
		return
	}
	c.JSON(http.StatusOK, toSessionResponse(session, false))
}

// Logout handles POST /api/user/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	if token := middleware.ExtractToken(c); token != "" {
		if err := h.facade.Logout(c.Request.Context(), token); err != nil {
			respondError(c, err)
			return
		}
	}
	middleware.ClearAuthCookie(c)
	c.Status(http.StatusNoContent)
}

func toSessionResponse(s *model.Session, withToken bool) dto.SessionResponse {
	resp := dto.SessionResponse{
		State:     string(model.SessionAuthenticated),
		UserID:    s.UserID.String(),
		Method:    string(s.Method),
		IssuedAt:  &s.IssuedAt,
		ExpiresAt: &s.ExpiresAt,
	}
	if withToken {
		resp.Token = s.Token
	}
	return resp
}
