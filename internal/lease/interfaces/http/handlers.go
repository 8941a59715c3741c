package leasehttp

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"lease-escrow/internal/audit"
	"lease-escrow/internal/auth"
	"lease-escrow/internal/eventing"
	"lease-escrow/internal/lease/application"
	lease "lease-escrow/internal/lease/domain"
	"lease-escrow/internal/lease/interfaces/export"
)

// Handler exposes the lease service over HTTP.
type Handler struct {
	service  *application.Service
	audit    audit.Logger
	logger   *zap.Logger
	reporter lease.Identity
	now      func() time.Time
}

// Option configures the handler.
type Option func(*Handler)

// WithAudit records successful mutations.
func WithAudit(logger audit.Logger) Option {
	return func(h *Handler) {
		h.audit = logger
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithIngestReporter sets the identity condition reports from signed gateway
// webhooks are submitted under.
func WithIngestReporter(reporter lease.Identity) Option {
	return func(h *Handler) {
		h.reporter = reporter
	}
}

// NewHandler constructs a Handler.
func NewHandler(service *application.Service, opts ...Option) *Handler {
	h := &Handler{
		service: service,
		logger:  zap.NewNop(),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func caller(r *http.Request) lease.Identity {
	return lease.Identity(auth.SubjectFromContext(r.Context()))
}

// withEventMeta tags events emitted by the request with the caller and request id.
func withEventMeta(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if subject := auth.SubjectFromContext(ctx); subject != "" {
			ctx = eventing.WithActor(ctx, subject)
		}
		if reqID := middleware.GetReqID(ctx); reqID != "" {
			ctx = eventing.WithCorrelationID(ctx, reqID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) record(r *http.Request, resourceType, resourceID string, metadata any) {
	if h.audit == nil {
		return
	}
	entry := audit.FromRequest(r, resourceType, resourceID)
	if metadata != nil {
		if raw, err := json.Marshal(metadata); err == nil {
			entry.Metadata = raw
		}
	}
	if err := h.audit.Log(r.Context(), entry); err != nil {
		h.logger.Warn("audit log failed", zap.String("action", entry.Action), zap.Error(err))
	}
}

func propertyParam(r *http.Request) (lease.PropertyID, error) {
	return lease.ParsePropertyID(chi.URLParam(r, "propertyID"))
}

func agreementParam(r *http.Request) (lease.AgreementID, error) {
	return lease.ParseAgreementID(chi.URLParam(r, "agreementID"))
}

// Properties.

func (h *Handler) listProperty(w http.ResponseWriter, r *http.Request) {
	var in application.ListPropertyInput
	if err := decode(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	id, err := h.service.ListProperty(r.Context(), caller(r), in)
	if err != nil {
		writeError(w, err)
		return
	}
	h.record(r, "property", id.String(), in)
	writeJSON(w, http.StatusCreated, map[string]string{"property_id": id.String()})
}

func (h *Handler) getProperty(w http.ResponseWriter, r *http.Request) {
	id, err := propertyParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	property, err := h.service.GetProperty(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, property)
}

func (h *Handler) listLandlordProperties(w http.ResponseWriter, r *http.Request) {
	properties, err := h.service.ListLandlordProperties(r.Context(), lease.Identity(chi.URLParam(r, "identity")))
	if err != nil {
		writeError(w, err)
		return
	}
	if properties == nil {
		properties = []lease.Property{}
	}
	writeJSON(w, http.StatusOK, properties)
}

// Condition reports.

type scoresRequest struct {
	PropertyID  string `json:"property_id,omitempty"`
	Temperature int    `json:"temperature"`
	Plumbing    int    `json:"plumbing"`
	Security    int    `json:"security"`
}

func (s scoresRequest) scores() lease.Scores {
	return lease.Scores{Temperature: s.Temperature, Plumbing: s.Plumbing, Security: s.Security}
}

func (h *Handler) updateCondition(w http.ResponseWriter, r *http.Request) {
	id, err := propertyParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var in scoresRequest
	if err := decode(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	snapshot, err := h.service.UpdateConditionReport(r.Context(), caller(r), id, in.scores())
	if err != nil {
		writeError(w, err)
		return
	}
	h.record(r, "property", id.String(), in)
	writeJSON(w, http.StatusOK, snapshot)
}

func (h *Handler) getCondition(w http.ResponseWriter, r *http.Request) {
	id, err := propertyParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	snapshot, found, err := h.service.GetConditionReport(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !found {
		writeError(w, lease.ErrNoConditionReport)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// ingestCondition accepts a signed gateway report. The property id comes from
// the body since gateways post to a single endpoint.
func (h *Handler) ingestCondition(w http.ResponseWriter, r *http.Request) {
	var in scoresRequest
	if err := decode(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	id, err := lease.ParsePropertyID(in.PropertyID)
	if err != nil {
		writeError(w, err)
		return
	}
	ctx := eventing.WithActor(r.Context(), string(h.reporter))
	snapshot, err := h.service.UpdateConditionReport(ctx, h.reporter, id, in.scores())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, snapshot)
}

// Maintenance.

type maintenanceRequest struct {
	AgreementID string `json:"agreement_id"`
	Description string `json:"description"`
}

func (h *Handler) requestMaintenance(w http.ResponseWriter, r *http.Request) {
	propertyID, err := propertyParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var in maintenanceRequest
	if err := decode(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	agreementID, err := lease.ParseAgreementID(in.AgreementID)
	if err != nil {
		writeError(w, err)
		return
	}
	requestID, err := h.service.RequestMaintenance(r.Context(), caller(r), propertyID, agreementID, in.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	h.record(r, "property", propertyID.String(), in)
	writeJSON(w, http.StatusCreated, map[string]any{"property_id": propertyID.String(), "request_id": requestID})
}

func (h *Handler) completeMaintenance(w http.ResponseWriter, r *http.Request) {
	propertyID, err := propertyParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	requestID, err := lease.ParseRequestID(chi.URLParam(r, "requestID"))
	if err != nil {
		writeError(w, err)
		return
	}
	var in struct {
		Cost int64 `json:"cost"`
	}
	if err := decode(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	if err := h.service.CompleteMaintenance(r.Context(), caller(r), propertyID, requestID, in.Cost); err != nil {
		writeError(w, err)
		return
	}
	h.record(r, "property", propertyID.String(), in)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listMaintenance(w http.ResponseWriter, r *http.Request) {
	id, err := propertyParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	requests, err := h.service.ListMaintenance(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if requests == nil {
		requests = []lease.MaintenanceRequest{}
	}
	writeJSON(w, http.StatusOK, requests)
}

// Agreements.

type createAgreementRequest struct {
	PropertyID string    `json:"property_id"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
	Payment    int64     `json:"payment"`
}

func (h *Handler) createAgreement(w http.ResponseWriter, r *http.Request) {
	var in createAgreementRequest
	if err := decode(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	propertyID, err := lease.ParsePropertyID(in.PropertyID)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := h.service.CreateAgreement(r.Context(), caller(r), application.CreateAgreementInput{
		PropertyID: propertyID,
		StartDate:  in.StartDate,
		EndDate:    in.EndDate,
	}, in.Payment)
	if err != nil {
		writeError(w, err)
		return
	}
	h.record(r, "agreement", id.String(), in)
	writeJSON(w, http.StatusCreated, map[string]string{"agreement_id": id.String()})
}

func (h *Handler) getAgreement(w http.ResponseWriter, r *http.Request) {
	id, err := agreementParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	agreement, err := h.service.GetAgreement(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, agreement)
}

func (h *Handler) listTenantAgreements(w http.ResponseWriter, r *http.Request) {
	agreements, err := h.service.ListTenantAgreements(r.Context(), lease.Identity(chi.URLParam(r, "identity")))
	if err != nil {
		writeError(w, err)
		return
	}
	if agreements == nil {
		agreements = []lease.RentalAgreement{}
	}
	writeJSON(w, http.StatusOK, agreements)
}

func (h *Handler) payRent(w http.ResponseWriter, r *http.Request) {
	id, err := agreementParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var in struct {
		Payment int64 `json:"payment"`
	}
	if err := decode(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	if err := h.service.PayMonthlyRent(r.Context(), caller(r), id, in.Payment); err != nil {
		writeError(w, err)
		return
	}
	h.record(r, "agreement", id.String(), in)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) releaseRent(w http.ResponseWriter, r *http.Request) {
	id, err := agreementParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	split, err := h.service.ReleaseMonthlyRent(r.Context(), caller(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	h.record(r, "agreement", id.String(), split)
	writeJSON(w, http.StatusOK, split)
}

func (h *Handler) terminate(w http.ResponseWriter, r *http.Request) {
	id, err := agreementParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := h.service.TerminateAgreement(r.Context(), caller(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	h.record(r, "agreement", id.String(), result)
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) getEscrow(w http.ResponseWriter, r *http.Request) {
	id, err := agreementParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	account, err := h.service.GetEscrow(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// Disputes.

func (h *Handler) raiseDispute(w http.ResponseWriter, r *http.Request) {
	id, err := agreementParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var in struct {
		Deposit int64 `json:"deposit"`
	}
	if err := decode(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	if err := h.service.RaiseDispute(r.Context(), caller(r), id, in.Deposit); err != nil {
		writeError(w, err)
		return
	}
	h.record(r, "agreement", id.String(), in)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) resolveDispute(w http.ResponseWriter, r *http.Request) {
	id, err := agreementParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var in struct {
		FavorTenant bool `json:"favor_tenant"`
	}
	if err := decode(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	ruling, err := h.service.ResolveDispute(r.Context(), caller(r), id, in.FavorTenant)
	if err != nil {
		writeError(w, err)
		return
	}
	h.record(r, "agreement", id.String(), in)
	writeJSON(w, http.StatusOK, map[string]any{
		"deposit_to":    ruling.DepositTo,
		"deposit":       ruling.Deposit,
		"stake":         ruling.Stake,
		"stake_to_pool": ruling.StakeToPool,
		"favors_tenant": ruling.FavorsTenant,
	})
}

// Administration.

func (h *Handler) getPlatform(w http.ResponseWriter, r *http.Request) {
	platform, err := h.service.GetPlatform(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, platform)
}

func (h *Handler) setFeePercent(w http.ResponseWriter, r *http.Request) {
	var in struct {
		FeePercent int `json:"fee_percent"`
	}
	if err := decode(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	if err := h.service.SetFeePercent(r.Context(), caller(r), in.FeePercent); err != nil {
		writeError(w, err)
		return
	}
	h.record(r, "platform", "fee_percent", in)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) setDisputeDeposit(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Amount int64 `json:"amount"`
	}
	if err := decode(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	if err := h.service.SetDisputeDeposit(r.Context(), caller(r), in.Amount); err != nil {
		writeError(w, err)
		return
	}
	h.record(r, "platform", "dispute_deposit", in)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) withdrawFees(w http.ResponseWriter, r *http.Request) {
	amount, err := h.service.WithdrawPlatformFees(r.Context(), caller(r))
	if err != nil {
		writeError(w, err)
		return
	}
	h.record(r, "platform", "fee_pool", map[string]int64{"amount": amount})
	writeJSON(w, http.StatusOK, map[string]int64{"amount": amount})
}

// Ledger.

// ledgerParty returns the party whose entries the caller may read. Operators
// may name any party or none; everyone else sees their own entries.
func ledgerParty(r *http.Request) lease.Identity {
	if auth.RoleFromContext(r.Context()) == auth.RoleOperator {
		return lease.Identity(strings.TrimSpace(r.URL.Query().Get("party")))
	}
	return caller(r)
}

func (h *Handler) listLedger(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.ListLedger(r.Context(), ledgerParty(r))
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []lease.LedgerEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) exportStatement(w http.ResponseWriter, r *http.Request) {
	party := ledgerParty(r)
	if err := party.Validate(); err != nil {
		writeError(w, err)
		return
	}
	entries, err := h.service.ListLedger(r.Context(), party)
	if err != nil {
		writeError(w, err)
		return
	}
	format := chi.URLParam(r, "format")
	data, contentType, err := export.Render(export.NewStatement(party, entries, h.now()), format)
	if err != nil {
		if _, class := statusOf(err); class == "" {
			h.logger.Error("statement render failed", zap.String("format", format), zap.Error(err))
		}
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename=statement-"+string(party)+"."+format)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
