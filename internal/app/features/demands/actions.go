// internal/app/features/demands/actions.go
package demands

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	uierrors "github.com/GlennEriss/kara-client-front-sub014/internal/app/features/errors"
	demandsvc "github.com/GlennEriss/kara-client-front-sub014/internal/app/services/demands"
	"github.com/GlennEriss/kara-client-front-sub014/internal/app/system/limits"
	"github.com/GlennEriss/kara-client-front-sub014/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// HandleCreate handles POST /demands/{domain}.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.service(w, r)
	if !ok {
		return
	}

	var in demandsvc.CreateInput
	if err := decodeBody(r, &in); err != nil {
		uierrors.BadRequest(w, err.Error())
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "create demand")
	defer cancel()

	d, err := svc.Create(ctx, in, actorID(r))
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	h.Log.Info("demand created",
		zap.String("domain", string(d.Domain)),
		zap.String("demand_id", d.ID),
		zap.String("actor_id", actorID(r)))
	uierrors.WriteJSON(w, http.StatusCreated, d)
}

// HandleApprove handles POST /demands/{domain}/{id}/approve. The reason is
// optional. A successful approval returns the converted demand.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.service(w, r)
	if !ok {
		return
	}
	reason, ok := readReason(w, r, false)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "approve demand")
	defer cancel()

	d, err := svc.Approve(ctx, chi.URLParam(r, "id"), actorID(r), reason)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, d)
}

// HandleReject handles POST /demands/{domain}/{id}/reject.
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.service(w, r)
	if !ok {
		return
	}
	reason, ok := readReason(w, r, true)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "reject demand")
	defer cancel()

	d, err := svc.Reject(ctx, chi.URLParam(r, "id"), actorID(r), reason)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, d)
}

// HandleReopen handles POST /demands/{domain}/{id}/reopen.
func (h *Handler) HandleReopen(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.service(w, r)
	if !ok {
		return
	}
	reason, ok := readReason(w, r, true)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "reopen demand")
	defer cancel()

	d, err := svc.Reopen(ctx, chi.URLParam(r, "id"), actorID(r), reason)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, d)
}

// HandleConvert handles POST /demands/{domain}/{id}/convert.
func (h *Handler) HandleConvert(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.service(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "convert demand")
	defer cancel()

	d, contractID, err := svc.Convert(ctx, chi.URLParam(r, "id"), actorID(r))
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, convertResponse{Demand: d, ContractID: contractID})
}

// HandleDelete handles DELETE /demands/{domain}/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.service(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "delete demand")
	defer cancel()

	if err := svc.Delete(ctx, chi.URLParam(r, "id"), actorID(r)); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// readReason decodes an optional {"reason": "..."} body. It writes a 400
// and returns false when the reason is missing but required, or too long.
func readReason(w http.ResponseWriter, r *http.Request, required bool) (string, bool) {
	var req reasonRequest
	if err := decodeBody(r, &req); err != nil {
		uierrors.BadRequest(w, err.Error())
		return "", false
	}
	reason := strings.TrimSpace(req.Reason)
	switch {
	case required && reason == "":
		uierrors.BadRequest(w, "reason is required")
		return "", false
	case utf8.RuneCountInString(reason) > limits.MaxReasonRunes:
		uierrors.BadRequest(w, fmt.Sprintf("reason must be at most %d characters", limits.MaxReasonRunes))
		return "", false
	}
	return reason, true
}

// decodeBody decodes a JSON body into v. An empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, limits.MaxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && err != io.EOF {
		return fmt.Errorf("invalid request body: %v", err)
	}
	return nil
}
