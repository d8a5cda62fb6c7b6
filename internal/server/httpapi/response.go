package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/srpkeeper/internal/common"
	"github.com/dmitrijs2005/srpkeeper/internal/server/models"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 64 << 10

type ErrorResponse struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

// UserView is the public shape of an account.
type UserView struct {
	ID        string    `json:"id"`
	Email     string    `json:"email,omitempty"`
	Name      string    `json:"name"`
	Image     *string   `json:"image,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

func newUserView(a *models.Account) UserView {
	v := UserView{
		ID:        a.ID,
		Name:      a.DisplayName,
		Image:     a.Image,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
	if a.Email != nil {
		v.Email = *a.Email
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message, Status: status})
}

// decodeJSON reads a size-limited JSON body into v. Unknown fields are ignored.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		writeJSONError(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}

// statusFor maps service errors to an HTTP status and a client-safe message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrorValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, common.ErrInvalidEphemeral):
		return http.StatusBadRequest, "Invalid client ephemeral"
	case errors.Is(err, common.ErrSessionExpiredOrMissing):
		return http.StatusBadRequest, common.SessionExpiredMessage
	case errors.Is(err, common.ErrDuplicateAccount):
		return http.StatusConflict, "Email already exists"
	case errors.Is(err, common.ErrAccountNotFound):
		return http.StatusNotFound, "Invalid email or password"
	case errors.Is(err, common.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, "User not found"
	default:
		return http.StatusInternalServerError, "Internal Server Error"
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	status, msg := statusFor(err)
	writeJSONError(w, status, msg)
}
