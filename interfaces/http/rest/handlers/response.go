package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/Shani815/vctalenthub-sub000/pkg/auth"
	pkgerrors "github.com/Shani815/vctalenthub-sub000/pkg/errors"
	"github.com/Shani815/vctalenthub-sub000/pkg/utils"

	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 16

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, logger *zap.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
	}
}

// decodeBody decodes and validates a JSON request body
func decodeBody(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return pkgerrors.NewValidationError("request body is required")
		}
		return pkgerrors.NewValidationError("invalid request body").WithCause(err)
	}
	return utils.ValidateStruct(dst)
}

// callerID returns the authenticated actor id
func callerID(r *http.Request) (string, error) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		return "", pkgerrors.NewUnauthorizedError("")
	}
	return user.UserID, nil
}
