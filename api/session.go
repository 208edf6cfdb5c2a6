package api

import (
	"net/http"
	"strconv"

	"github.com/Domenick1991/airbroker/internal/session"
	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	tokens session.TokenSource
}

func NewSessionHandler(tokens session.TokenSource) *SessionHandler {
	return &SessionHandler{tokens: tokens}
}

func (h *SessionHandler) Register(router *gin.RouterGroup) {
	router.GET("/token", h.token)
}

type tokenResponse struct {
	AccessToken string `json:"accessToken"`
}

func (h *SessionHandler) token(c *gin.Context) {
	force := false
	if raw := c.Query("force"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(c, "force must be a boolean")
			return
		}
		force = v
	}

	token, err := h.tokens.Token(c.Request.Context(), force)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tokenResponse{AccessToken: token})
}
