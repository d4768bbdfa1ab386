package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"jsonsig/internal/domain"
	"jsonsig/internal/usecase"

	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type generateKeyRequest struct {
	Algorithm string `json:"algorithm"`
}

type importKeyRequest struct {
	JWK     json.RawMessage `json:"jwk"`
	Private bool            `json:"private"`
	Replace bool            `json:"replace"`
}

type signRequest struct {
	KID      string          `json:"kid"`
	Payload  json.RawMessage `json:"payload"`
	EmbedKID bool            `json:"embed_kid"`
	EmbedJWK bool            `json:"embed_jwk"`
}

type verifyRequest struct {
	Signed domain.SignedObject `json:"signed"`
	KID    string              `json:"kid"`
}

func (s *Server) handleGenerateKey(c *gin.Context) {
	var req generateKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	key, err := s.engine.GenerateKeyPair(c.Request.Context(), domain.Algorithm(req.Algorithm))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, key)
}

func (s *Server) handleGetKey(c *gin.Context) {
	jwk, err := s.engine.PublicKey(c.Request.Context(), c.Param("kid"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/jwk+json", jwk)
}

func (s *Server) handleImportKey(c *gin.Context) {
	var req importKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	if len(req.JWK) == 0 {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_KEY", "jwk is required")
		return
	}
	var opts []usecase.ImportOption
	if req.Replace {
		opts = append(opts, usecase.WithReplace())
	}
	var err error
	if req.Private {
		err = s.engine.ImportPrivateKey(c.Request.Context(), c.Param("kid"), req.JWK, opts...)
	} else {
		err = s.engine.ImportPublicKey(c.Request.Context(), c.Param("kid"), req.JWK, opts...)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleSign(c *gin.Context) {
	var req signRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	if len(req.Payload) == 0 {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_PAYLOAD", "payload is required")
		return
	}
	var opts []usecase.SignOption
	if req.EmbedKID {
		opts = append(opts, usecase.WithEmbeddedKID())
	}
	if req.EmbedJWK {
		opts = append(opts, usecase.WithEmbeddedJWK())
	}
	obj, err := s.engine.Sign(c.Request.Context(), req.KID, req.Payload, opts...)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, obj)
}

func (s *Server) handleVerify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	result := s.engine.Verify(c.Request.Context(), req.Signed, req.KID)
	if !result.OK() {
		c.JSON(http.StatusUnprocessableEntity, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleNoRoute(c *gin.Context) {
	writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", "route not found")
}

func writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrKeyNotFound):
		status, code = http.StatusNotFound, "KEY_NOT_FOUND"
	case errors.Is(err, domain.ErrUnsupportedAlgorithm):
		status, code = http.StatusBadRequest, "UNSUPPORTED_ALGORITHM"
	case errors.Is(err, domain.ErrInvalidPayload):
		status, code = http.StatusBadRequest, "INVALID_PAYLOAD"
	case errors.Is(err, domain.ErrInvalidKey):
		status, code = http.StatusBadRequest, "INVALID_KEY"
	case errors.Is(err, domain.ErrKeyExists):
		status, code = http.StatusConflict, "KEY_EXISTS"
	case errors.Is(err, domain.ErrPolicyDenied):
		status, code = http.StatusForbidden, "POLICY_DENIED"
	}
	writeErrorCode(c, status, code, err.Error())
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, errorResponse{
		Code:    code,
		Message: message,
	})
}
