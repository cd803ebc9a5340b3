package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"tryon/internal/domain"
	"tryon/internal/middleware"
	"tryon/internal/tryon"
)

type generateRequest struct {
	UserEmail    string `json:"userEmail"`
	BaseImage    string `json:"baseImage"`
	ProductImage string `json:"productImage"`
	PromptMode   string `json:"promptMode"`
	AspectRatio  string `json:"aspectRatio"`
}

func (r generateRequest) missing() []string {
	var out []string
	if strings.TrimSpace(r.UserEmail) == "" {
		out = append(out, "userEmail")
	}
	if strings.TrimSpace(r.BaseImage) == "" {
		out = append(out, "baseImage")
	}
	if strings.TrimSpace(r.ProductImage) == "" {
		out = append(out, "productImage")
	}
	return out
}

type generateResponse struct {
	Success          bool   `json:"success"`
	ImageURL         string `json:"imageUrl"`
	RemainingCredits int    `json:"remainingCredits"`
	DebugUploadError string `json:"debug_upload_error,omitempty"`
}

// Generate handles POST /generate. The caller is already authenticated by
// middleware.Authenticate.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		a.error(w, http.StatusUnauthorized, "unauthorized", "Invalid or missing access token.")
		return
	}

	var body generateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.error(w, http.StatusRequestEntityTooLarge, "payload_too_large", "Request body is too large.")
			return
		}
		a.error(w, http.StatusBadRequest, "bad_request", "Invalid JSON body.")
		return
	}
	if missing := body.missing(); len(missing) > 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "Missing required fields: "+strings.Join(missing, ", "))
		return
	}

	res, err := a.TryOn.Generate(r.Context(), tryon.Request{
		Principal:    principal,
		UserEmail:    body.UserEmail,
		BaseImage:    body.BaseImage,
		ProductImage: body.ProductImage,
		PromptMode:   body.PromptMode,
		AspectRatio:  body.AspectRatio,
	})
	if err != nil {
		a.generateError(w, r, err)
		return
	}

	a.json(w, http.StatusOK, generateResponse{
		Success:          true,
		ImageURL:         res.ImageURL,
		RemainingCredits: res.RemainingCredits,
		DebugUploadError: res.PublishError,
	})
}

func (a *App) generateError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		a.error(w, http.StatusUnauthorized, "unauthorized", "Invalid or missing access token.")
	case errors.Is(err, domain.ErrMalformedInput):
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, domain.ErrInsufficientCredits):
		a.error(w, http.StatusPaymentRequired, "payment_required", "Insufficient credits.")
	case errors.Is(err, domain.ErrGenerationFailed):
		a.error(w, http.StatusInternalServerError, "generation_failed", err.Error())
	default:
		a.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("generate: unexpected error")
		a.error(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
