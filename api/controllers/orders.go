package controllers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/printdock/printdock-backend/api/responses"
	"github.com/printdock/printdock-backend/api/validators"
	"github.com/printdock/printdock-backend/internal/batchimports"
	"github.com/printdock/printdock-backend/internal/orders"
	"github.com/printdock/printdock-backend/pkg/enums"
	pkgerrors "github.com/printdock/printdock-backend/pkg/errors"
	"github.com/printdock/printdock-backend/pkg/logger"
)

const batchFileField = "file"

// OrderQuote prices a cart without writing anything.
func OrderQuote(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who, err := callerFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req orders.QuoteRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quote, err := svc.Quote(r.Context(), who.UserID, req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}

// OrderCreate charges the balance and creates one order per item.
func OrderCreate(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who, err := callerFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req orders.CreateOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		placement, err := svc.Create(r.Context(), who.UserID, req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, placement)
	}
}

// OrderList pages orders. Customers see their own, admins may filter by user_id.
func OrderList(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who, err := callerFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := orderListParams(r, who)
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

func orderListParams(r *http.Request, who caller) (orders.ListParams, error) {
	page, err := validators.ParsePage(r)
	if err != nil {
		return orders.ListParams{}, err
	}
	params := orders.ListParams{Params: page, UserID: who.scope()}
	if who.Admin {
		if params.UserID, err = validators.ParseQueryUUID(r, "user_id"); err != nil {
			return orders.ListParams{}, err
		}
	}
	if params.BatchImportID, err = validators.ParseQueryUUID(r, "batch_import_id"); err != nil {
		return orders.ListParams{}, err
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := enums.ParseOrderStatus(raw)
		if err != nil {
			return orders.ListParams{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		params.Status = &status
	}
	return params, nil
}

func OrderGet(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who, err := callerFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParsePathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Get(r.Context(), orders.Actor{UserID: who.UserID, Admin: who.Admin}, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// OrderCancel cancels a pending order and refunds its total.
func OrderCancel(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who, err := callerFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParsePathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Cancel(r.Context(), orders.Actor{UserID: who.UserID, Admin: who.Admin}, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// AdminOrderStatus moves an order through its fulfilment states.
func AdminOrderStatus(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who, err := callerFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParsePathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req orders.StatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.UpdateStatus(r.Context(), who.UserID, id, req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// OrderBatchImport reads a CSV from the "file" multipart field and places
// every row in one transaction.
func OrderBatchImport(svc batchimports.Service, maxBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who, err := callerFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		name, body, err := readCSVPart(r, maxBytes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		batch, err := svc.Import(r.Context(), who.UserID, name, bytes.NewReader(body))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, batch)
	}
}

func readCSVPart(r *http.Request, maxBytes int64) (string, []byte, error) {
	reader, err := r.MultipartReader()
	if err != nil {
		return "", nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "expected a multipart upload")
	}
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			return "", nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("multipart field %q is required", batchFileField))
		}
		if err != nil {
			return "", nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart body")
		}
		if part.FormName() != batchFileField {
			continue
		}
		body, err := io.ReadAll(io.LimitReader(part, maxBytes+1))
		if err != nil {
			return "", nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read upload")
		}
		if int64(len(body)) > maxBytes {
			return "", nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("file exceeds %d bytes", maxBytes))
		}
		return part.FileName(), body, nil
	}
}

func BatchImportList(svc batchimports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who, err := callerFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := validators.ParsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.List(r.Context(), batchimports.ListParams{Params: page, UserID: who.scope()})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func BatchImportGet(svc batchimports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who, err := callerFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParsePathUUID(r, "batchImportId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		batch, err := svc.Get(r.Context(), batchimports.Actor{UserID: who.UserID, Admin: who.Admin}, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, batch)
	}
}
