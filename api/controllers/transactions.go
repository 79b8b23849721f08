package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/printdock/printdock-backend/api/responses"
	"github.com/printdock/printdock-backend/api/validators"
	"github.com/printdock/printdock-backend/internal/transactions"
	"github.com/printdock/printdock-backend/pkg/enums"
	pkgerrors "github.com/printdock/printdock-backend/pkg/errors"
	"github.com/printdock/printdock-backend/pkg/logger"
)

// TransactionDeposit records a pending top-up for admin review.
func TransactionDeposit(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who, err := callerFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req transactions.DepositRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		txn, err := svc.Deposit(r.Context(), who.UserID, req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, txn)
	}
}

func TransactionList(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who, err := callerFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := transactionListParams(r, who)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func transactionListParams(r *http.Request, who caller) (transactions.ListParams, error) {
	page, err := validators.ParsePage(r)
	if err != nil {
		return transactions.ListParams{}, err
	}
	params := transactions.ListParams{Params: page, UserID: who.scope()}
	if who.Admin {
		if params.UserID, err = validators.ParseQueryUUID(r, "user_id"); err != nil {
			return transactions.ListParams{}, err
		}
	}
	query := r.URL.Query()
	if raw := strings.TrimSpace(query.Get("type")); raw != "" {
		kind, err := enums.ParseTransactionType(raw)
		if err != nil {
			return transactions.ListParams{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid type")
		}
		params.Type = &kind
	}
	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		status, err := enums.ParseTransactionStatus(raw)
		if err != nil {
			return transactions.ListParams{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		params.Status = &status
	}
	return params, nil
}

func TransactionGet(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who, err := callerFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParsePathUUID(r, "transactionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		txn, err := svc.Get(r.Context(), transactions.Actor{UserID: who.UserID, Admin: who.Admin}, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, txn)
	}
}

// TransactionAddNote appends to the user thread, or the admin thread for admins.
func TransactionAddNote(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who, err := callerFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParsePathUUID(r, "transactionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req transactions.NoteRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		txn, err := svc.AddNote(r.Context(), transactions.Actor{UserID: who.UserID, Admin: who.Admin}, id, req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, txn)
	}
}

func AdminTransactionApprove(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return transactionDecision(logg, svc.Approve)
}

func AdminTransactionReject(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return transactionDecision(logg, svc.Reject)
}

type decideFunc func(ctx context.Context, adminID, id uuid.UUID, req transactions.DecisionRequest) (*transactions.TransactionDTO, error)

// transactionDecision accepts an empty body; the reason is optional.
func transactionDecision(logg *logger.Logger, decide decideFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who, err := callerFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParsePathUUID(r, "transactionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req transactions.DecisionRequest
		if err := validators.DecodeOptionalJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		txn, err := decide(r.Context(), who.UserID, id, req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, txn)
	}
}
