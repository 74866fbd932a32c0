package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dvloznov/pocket-ledger/internal/api/middleware"
	"github.com/dvloznov/pocket-ledger/internal/domain"
	"github.com/dvloznov/pocket-ledger/internal/transactions"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const transactionsPath = "/api/transactions"

// TransactionsHandler handles transaction-related endpoints.
type TransactionsHandler struct {
	svc *transactions.Service
	log zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(svc *transactions.Service, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{
		svc: svc,
		log: log,
	}
}

// Register mounts the transaction routes on mux.
func (h *TransactionsHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc(transactionsPath, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.ListTransactions(w, r)
		case http.MethodPost:
			h.CreateTransaction(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc(transactionsPath+"/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, transactionsPath+"/")
		if id == "" || strings.Contains(id, "/") {
			middleware.WriteError(w, http.StatusBadRequest, "Transaction ID is required")
			return
		}

		switch r.Method {
		case http.MethodGet:
			h.GetTransaction(w, r, id)
		case http.MethodPatch, http.MethodPut:
			h.UpdateTransaction(w, r, id)
		case http.MethodDelete:
			h.DeleteTransaction(w, r, id)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})
}

// transactionRequest is the body of create and update calls. Absent fields
// stay nil so updates can tell "not sent" from "sent empty".
type transactionRequest struct {
	Type        *string          `json:"type"`
	Value       *decimal.Decimal `json:"value"`
	Currency    *string          `json:"currency"`
	Description *string          `json:"description"`
	Date        *string          `json:"date"`
}

// TransactionResponse is the JSON shape of a transaction.
type TransactionResponse struct {
	ID              string  `json:"id"`
	Type            string  `json:"type"`
	Value           float64 `json:"value"`
	Currency        string  `json:"currency"`
	FormattedAmount string  `json:"formatted_amount"`
	Description     string  `json:"description"`
	Date            string  `json:"date"`
}

// NewTransactionResponse renders a domain transaction.
func NewTransactionResponse(t *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:              t.ID(),
		Type:            t.Type().String(),
		Value:           t.Amount().Value().InexactFloat64(),
		Currency:        t.Amount().Currency().String(),
		FormattedAmount: t.Amount().Format(),
		Description:     t.Description(),
		Date:            t.Date().Format(domain.DateFormat),
	}
}

// ListTransactions handles GET /api/transactions
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.GetAllTransactions(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "Failed to list transactions")
		return
	}

	// Return array directly for frontend compatibility
	out := make([]TransactionResponse, 0, len(list))
	for _, t := range list {
		out = append(out, NewTransactionResponse(t))
	}
	middleware.WriteJSON(w, http.StatusOK, out)
}

// CreateTransaction handles POST /api/transactions
func (h *TransactionsHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	in, err := req.createInput()
	if err != nil {
		h.writeServiceError(w, err, "Invalid request body")
		return
	}

	t, err := h.svc.CreateTransaction(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, err, "Failed to create transaction")
		return
	}

	h.log.Info().Str("transaction_id", t.ID()).Msg("Transaction created")
	middleware.WriteJSON(w, http.StatusCreated, NewTransactionResponse(t))
}

// GetTransaction handles GET /api/transactions/{id}
func (h *TransactionsHandler) GetTransaction(w http.ResponseWriter, r *http.Request, id string) {
	t, err := h.svc.GetTransactionByID(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "Failed to get transaction")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, NewTransactionResponse(t))
}

// UpdateTransaction handles PATCH /api/transactions/{id}
func (h *TransactionsHandler) UpdateTransaction(w http.ResponseWriter, r *http.Request, id string) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	patch, err := req.patch()
	if err != nil {
		h.writeServiceError(w, err, "Invalid request body")
		return
	}

	t, err := h.svc.UpdateTransaction(r.Context(), id, patch)
	if err != nil {
		h.writeServiceError(w, err, "Failed to update transaction")
		return
	}

	h.log.Info().Str("transaction_id", t.ID()).Strs("fields", patch.Fields()).Msg("Transaction updated")
	middleware.WriteJSON(w, http.StatusOK, NewTransactionResponse(t))
}

// DeleteTransaction handles DELETE /api/transactions/{id}
func (h *TransactionsHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.svc.DeleteTransaction(r.Context(), id); err != nil {
		h.writeServiceError(w, err, "Failed to delete transaction")
		return
	}

	h.log.Info().Str("transaction_id", id).Msg("Transaction deleted")
	w.WriteHeader(http.StatusNoContent)
}

// writeServiceError maps validation failures to 400, unknown ids to 404 and
// everything else to 500 with a generic message.
func (h *TransactionsHandler) writeServiceError(w http.ResponseWriter, err error, message string) {
	var (
		vErr *domain.ValidationError
		nf   *transactions.NotFoundError
	)

	switch {
	case errors.As(err, &vErr):
		middleware.WriteError(w, http.StatusBadRequest, vErr.Message)
	case errors.As(err, &nf):
		middleware.WriteError(w, http.StatusNotFound, nf.Error())
	default:
		h.log.Error().Err(err).Msg(message)
		middleware.WriteError(w, http.StatusInternalServerError, message)
	}
}

func (req transactionRequest) createInput() (transactions.CreateInput, error) {
	var in transactions.CreateInput

	switch {
	case req.Type == nil:
		return in, &domain.ValidationError{Field: "type", Message: "type is required"}
	case req.Value == nil:
		return in, &domain.ValidationError{Field: "amount", Message: "value is required"}
	case req.Description == nil:
		return in, &domain.ValidationError{Field: "description", Message: "description is required"}
	case req.Date == nil:
		return in, &domain.ValidationError{Field: "date", Message: "date is required"}
	}

	p, err := req.patch()
	if err != nil {
		return in, err
	}

	in = transactions.CreateInput{
		Type:        *p.Type,
		Value:       *p.Value,
		Currency:    domain.USD,
		Description: *p.Description,
		Date:        *p.Date,
	}
	if p.Currency != nil {
		in.Currency = *p.Currency
	}
	return in, nil
}

func (req transactionRequest) patch() (transactions.Patch, error) {
	var p transactions.Patch

	if req.Type != nil {
		t, err := domain.ParseTransactionType(*req.Type)
		if err != nil {
			return p, err
		}
		p.Type = &t
	}
	if req.Value != nil {
		v := *req.Value
		p.Value = &v
	}
	if req.Currency != nil {
		c, err := domain.ParseCurrency(*req.Currency)
		if err != nil {
			return p, err
		}
		p.Currency = &c
	}
	if req.Description != nil {
		d := *req.Description
		p.Description = &d
	}
	if req.Date != nil {
		d, err := domain.ParseDate(*req.Date)
		if err != nil {
			return p, err
		}
		p.Date = &d
	}
	return p, nil
}
