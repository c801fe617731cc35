package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shoplane/api/internal/database"
	"github.com/shoplane/api/internal/enum"
	"github.com/shoplane/api/internal/mail"
	"github.com/shoplane/api/internal/otp"
)

// trackingPixel is a 1x1 transparent PNG, served on every tracking hit.
var trackingPixel, _ = base64.StdEncoding.DecodeString(
	"iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII=")

// EmailStore defines the database methods needed by email handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type EmailStore interface {
	CreateEmailMessage(ctx context.Context, arg database.CreateEmailMessageParams) (database.EmailMessage, error)
	MarkEmailSeen(ctx context.Context, arg database.MarkEmailSeenParams) (database.EmailMessage, error)
}

// OTPStore issues and verifies one-time passcodes.
// Satisfied by *otp.Store.
type OTPStore interface {
	Issue(ctx context.Context, email string) (string, error)
	Verify(ctx context.Context, email, code string) error
}

// EmailHandler handles campaign sends, open tracking, and OTP flows.
type EmailHandler struct {
	store   EmailStore
	sender  mail.Sender
	otp     OTPStore
	baseURL string
}

// NewEmailHandler creates a new EmailHandler.
func NewEmailHandler(store EmailStore, sender mail.Sender, otpStore OTPStore, baseURL string) *EmailHandler {
	return &EmailHandler{store: store, sender: sender, otp: otpStore, baseURL: baseURL}
}

// RegisterPublicRoutes registers the tracking pixel and OTP endpoints.
func (h *EmailHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/email/track/{trackingId}", h.Track)
	r.Post("/email/send-otp", h.SendOTP)
	r.Post("/email/verify-otp", h.VerifyOTP)
}

// RegisterAdminRoutes registers the campaign send endpoints.
func (h *EmailHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/email/send-marketing-email", h.SendMarketing)
	r.Post("/email/send", h.SendTracked)
}

// --- Request / Response types ---

type marketingEmailRequest struct {
	Recipients []string `json:"recipients"`
	Subject    string   `json:"subject"`
	Message    string   `json:"message"`
}

type marketingEmailResponse struct {
	Sent             int      `json:"sent"`
	Failed           int      `json:"failed"`
	FailedRecipients []string `json:"failed_recipients,omitempty"`
}

type trackedEmailRequest struct {
	RecipientEmail string `json:"recipient_email"`
	Subject        string `json:"subject"`
	Message        string `json:"message"`
}

type otpRequest struct {
	Email string `json:"email"`
	Code  string `json:"code,omitempty"`
}

// --- Handlers ---

// SendMarketing sends the same message to every recipient and reports
// per-recipient failures instead of aborting the batch.
func (h *EmailHandler) SendMarketing(w http.ResponseWriter, r *http.Request) {
	var req marketingEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if len(req.Recipients) == 0 || req.Subject == "" || req.Message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "recipients, subject and message are required"})
		return
	}

	var resp marketingEmailResponse
	for _, recipient := range req.Recipients {
		if err := h.sender.Send(recipient, req.Subject, req.Message); err != nil {
			log.Printf("ERROR: send marketing email to %s: %v", recipient, err)
			resp.Failed++
			resp.FailedRecipients = append(resp.FailedRecipients, recipient)
			continue
		}
		resp.Sent++
	}

	writeJSON(w, http.StatusOK, resp)
}

// SendTracked sends one message with an open-tracking pixel appended and
// records it with status Sent.
func (h *EmailHandler) SendTracked(w http.ResponseWriter, r *http.Request) {
	var req trackedEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.RecipientEmail == "" || req.Subject == "" || req.Message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "recipient_email, subject and message are required"})
		return
	}

	trackingID := uuid.New()
	body := fmt.Sprintf(`%s<img src="%s/api/email/track/%s" width="1" height="1" alt="" />`,
		req.Message, h.baseURL, trackingID)

	if err := h.sender.Send(req.RecipientEmail, req.Subject, body); err != nil {
		log.Printf("ERROR: send tracked email: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to send email"})
		return
	}

	msg, err := h.store.CreateEmailMessage(r.Context(), database.CreateEmailMessageParams{
		TrackingID:     trackingID,
		RecipientEmail: req.RecipientEmail,
		Subject:        req.Subject,
		Status:         enum.EmailStatusSent,
	})
	if err != nil {
		log.Printf("ERROR: record email message: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message":     "email sent",
		"tracking_id": msg.TrackingID.String(),
	})
}

// Track marks the message Seen and serves the pixel. Unknown ids still get
// the pixel so mail clients never render a broken image.
func (h *EmailHandler) Track(w http.ResponseWriter, r *http.Request) {
	if trackingID, err := uuid.Parse(chi.URLParam(r, "trackingId")); err == nil {
		_, err := h.store.MarkEmailSeen(r.Context(), database.MarkEmailSeenParams{
			TrackingID: trackingID,
			Status:     enum.EmailStatusSeen,
		})
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			log.Printf("ERROR: mark email seen: %v", err)
		}
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(trackingPixel)
}

// SendOTP issues a verification code and emails it.
func (h *EmailHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email is required"})
		return
	}

	code, err := h.otp.Issue(r.Context(), req.Email)
	if err != nil {
		log.Printf("ERROR: issue otp: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	body := fmt.Sprintf("<p>Your verification code is <b>%s</b>. It expires in 5 minutes.</p>", code)
	if err := h.sender.Send(req.Email, "Your verification code", body); err != nil {
		log.Printf("ERROR: send otp email: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to send email"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "otp sent"})
}

// VerifyOTP checks the code. Expired, missing, and wrong codes all get the
// same 400 so the endpoint leaks nothing about issued codes.
func (h *EmailHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Email == "" || req.Code == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email and code are required"})
		return
	}

	if err := h.otp.Verify(r.Context(), req.Email, req.Code); err != nil {
		if errors.Is(err, otp.ErrCodeMismatch) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid or expired code"})
			return
		}
		log.Printf("ERROR: verify otp: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "email verified"})
}
