package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"secdash/internal/auth"
	apperrors "secdash/internal/errors"
	"secdash/internal/service"
)

// EncryptForm is the encrypt form.
type EncryptForm struct {
	Plaintext string `form:"plaintext"`
	Password  string `form:"password"`
}

// DecryptForm is the decrypt form.
type DecryptForm struct {
	Ciphertext string `form:"ciphertext"`
	Password   string `form:"password"`
}

// CryptoHandler serves the text encryption page.
type CryptoHandler struct {
	svc service.CryptoService
}

// NewCryptoHandler creates a new crypto handler.
func NewCryptoHandler(svc service.CryptoService) *CryptoHandler {
	return &CryptoHandler{svc: svc}
}

type cryptoData struct {
	Encrypted     string
	Decrypted     string
	ShowDecrypted bool
}

// Index renders the empty forms.
func (h *CryptoHandler) Index(c echo.Context) error {
	return c.Render(http.StatusOK, "crypto.html", newPage(c, "Text encryption", cryptoData{}))
}

// Encrypt seals the submitted text under the submitted password.
func (h *CryptoHandler) Encrypt(c echo.Context) error {
	user, _ := auth.CurrentUser(c)
	var form EncryptForm
	if err := c.Bind(&form); err != nil {
		return h.failed(c, h.svc.Reject(c.Request().Context(), user, service.OpEncrypt, requestMeta(c)))
	}
	token, err := h.svc.Encrypt(c.Request().Context(), user, form.Plaintext, form.Password, requestMeta(c))
	if err != nil {
		return h.failed(c, err)
	}
	return c.Render(http.StatusOK, "crypto.html", newPage(c, "Text encryption", cryptoData{Encrypted: token}))
}

// Decrypt opens a token produced by Encrypt.
func (h *CryptoHandler) Decrypt(c echo.Context) error {
	user, _ := auth.CurrentUser(c)
	var form DecryptForm
	if err := c.Bind(&form); err != nil {
		return h.failed(c, h.svc.Reject(c.Request().Context(), user, service.OpDecrypt, requestMeta(c)))
	}
	plaintext, err := h.svc.Decrypt(c.Request().Context(), user, form.Ciphertext, form.Password, requestMeta(c))
	if err != nil {
		return h.failed(c, err)
	}
	return c.Render(http.StatusOK, "crypto.html", newPage(c, "Text encryption", cryptoData{Decrypted: plaintext, ShowDecrypted: true}))
}

func (h *CryptoHandler) failed(c echo.Context, err error) error {
	page := newPage(c, "Text encryption", cryptoData{})
	page.Error = apperrors.UserMessage(err)
	return c.Render(http.StatusBadRequest, "crypto.html", page)
}
