package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/printdock/printdock-backend/pkg/client"
	"github.com/printdock/printdock-backend/pkg/client/resource"
	"github.com/printdock/printdock-backend/pkg/enums"
	pkgerrors "github.com/printdock/printdock-backend/pkg/errors"
	"github.com/printdock/printdock-backend/pkg/types"
)

const (
	productsPath = "/api/v1/products"
	ordersPath   = "/api/v1/orders"
	quotePath    = "/api/v1/orders/quote"
	batchPath    = "/api/v1/orders/batch"
	depositPath  = "/api/v1/transactions/deposit"
)

// itemFlags collects repeated -item values.
type itemFlags []client.OrderItem

func (f *itemFlags) String() string {
	return fmt.Sprintf("%d items", len(*f))
}

func (f *itemFlags) Set(value string) error {
	item, err := parseItem(value)
	if err != nil {
		return err
	}
	*f = append(*f, item)
	return nil
}

// parseItem reads product:qty[:color[:size[:opt,opt]]].
func parseItem(value string) (client.OrderItem, error) {
	parts := strings.Split(value, ":")
	if len(parts) < 2 {
		return client.OrderItem{}, fmt.Errorf("item %q: want product:qty", value)
	}
	productID, err := uuid.Parse(parts[0])
	if err != nil {
		return client.OrderItem{}, fmt.Errorf("item %q: bad product id", value)
	}
	qty, err := strconv.Atoi(parts[1])
	if err != nil || qty < 1 {
		return client.OrderItem{}, fmt.Errorf("item %q: quantity must be a positive integer", value)
	}
	item := client.OrderItem{ProductID: productID, Quantity: qty, Customizations: []string{}}
	if len(parts) > 2 && parts[2] != "" {
		item.Color = &parts[2]
	}
	if len(parts) > 3 && parts[3] != "" {
		item.Size = &parts[3]
	}
	if len(parts) > 4 && parts[4] != "" {
		item.Customizations = strings.Split(parts[4], ",")
	}
	return item, nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", os.Getenv("STOREFRONT_PASSWORD"), "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" || *password == "" {
		return errors.New("login requires -email and -password")
	}

	res, err := a.sessions.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("login failed: %s", res.Message)
	}
	fmt.Fprintf(a.out, "signed in as %s (%s)\n", res.User.Email, res.User.CompanyName)
	if res.ReturnURL != "" {
		fmt.Fprintf(a.out, "you were last at %s\n", res.ReturnURL)
	}
	return nil
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", os.Getenv("STOREFRONT_PASSWORD"), "account password")
	company := fs.String("company", "", "company name")
	contact := fs.String("contact", "", "contact name")
	phone := fs.String("phone", "", "phone number")
	if err := fs.Parse(args); err != nil {
		return err
	}
	req := client.RegisterRequest{
		Email:       *email,
		Password:    *password,
		CompanyName: *company,
		ContactName: *contact,
	}
	if *phone != "" {
		req.Phone = phone
	}
	user, err := a.sessions.Register(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "registered %s, status %s\n", user.Email, user.Status)
	return nil
}

func (a *app) forgotPassword(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("forgot-password", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.sessions.ForgotPassword(ctx, *email); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "if the account exists, a reset link is on its way")
	return nil
}

func (a *app) me(ctx context.Context) error {
	user, err := a.requireUser(ctx)
	if err != nil {
		return err
	}
	return a.print(user)
}

func (a *app) products(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("products", flag.ContinueOnError)
	search := fs.String("search", "", "filter by name or sku")
	id := fs.String("id", "", "show one product")
	cursor := fs.String("cursor", "", "page cursor")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, err := a.requireUser(ctx); err != nil {
		return err
	}

	products := resource.New[client.Product](a.api, productsPath, resource.WithLogger(a.logg))
	if *id != "" {
		res := products.Get(ctx, *id)
		if !res.Success {
			return resultError(res.Message, res.Code)
		}
		return a.print(res.Data)
	}

	params := url.Values{}
	if *search != "" {
		params.Set("search", *search)
	}
	if *cursor != "" {
		params.Set("cursor", *cursor)
	}
	res := products.List(ctx, params)
	if !res.Success {
		return resultError(res.Message, res.Code)
	}
	return a.print(res.Data)
}

func (a *app) orders(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("orders", flag.ContinueOnError)
	status := fs.String("status", "", "filter by status")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, err := a.requireUser(ctx); err != nil {
		return err
	}
	params := url.Values{}
	if *status != "" {
		params.Set("status", *status)
	}
	res := resource.New[client.Order](a.api, ordersPath, resource.WithLogger(a.logg)).List(ctx, params)
	if !res.Success {
		return resultError(res.Message, res.Code)
	}
	return a.print(res.Data)
}

func (a *app) quote(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("quote", flag.ContinueOnError)
	var items itemFlags
	fs.Var(&items, "item", "product:qty[:color[:size[:opt,opt]]], repeatable")
	shipping := fs.String("shipping", string(enums.ShippingStandard), "standard|express")
	if err := fs.Parse(args); err != nil {
		return err
	}
	method, err := enums.ParseShippingMethod(*shipping)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return errors.New("quote requires at least one -item")
	}
	if _, err := a.requireUser(ctx); err != nil {
		return err
	}

	var q client.Quote
	if err := a.api.Do(ctx, http.MethodPost, quotePath, client.QuoteRequest{Items: items, ShippingMethod: method}, &q); err != nil {
		return err
	}
	return a.print(q)
}

func (a *app) order(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("order", flag.ContinueOnError)
	var items itemFlags
	fs.Var(&items, "item", "product:qty[:color[:size[:opt,opt]]], repeatable")
	shipping := fs.String("shipping", string(enums.ShippingStandard), "standard|express")
	var addr types.ShippingAddress
	fs.StringVar(&addr.Name, "name", "", "recipient name")
	fs.StringVar(&addr.Line1, "line1", "", "street address")
	fs.StringVar(&addr.City, "city", "", "city")
	fs.StringVar(&addr.State, "state", "", "state or region")
	fs.StringVar(&addr.PostalCode, "postal", "", "postal code")
	fs.StringVar(&addr.Country, "country", "", "ISO country code")
	notes := fs.String("notes", "", "order notes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	method, err := enums.ParseShippingMethod(*shipping)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return errors.New("order requires at least one -item")
	}
	if _, err := a.requireUser(ctx); err != nil {
		return err
	}

	req := client.CreateOrderRequest{
		Items:           items,
		ShippingAddress: addr.Normalize(),
		ShippingMethod:  method,
	}
	if *notes != "" {
		req.Notes = notes
	}
	var placed client.Placement
	if err := a.api.Do(ctx, http.MethodPost, ordersPath, req, &placed, client.WithIdempotencyKey("")); err != nil {
		return err
	}
	return a.print(placed)
}

func (a *app) deposit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("deposit", flag.ContinueOnError)
	amount := fs.String("amount", "", "amount to deposit")
	method := fs.String("method", string(enums.PaymentBankTransfer), "bank_transfer|card|cash")
	proof := fs.String("proof-url", "", "payment proof URL")
	if err := fs.Parse(args); err != nil {
		return err
	}
	value, err := decimal.NewFromString(*amount)
	if err != nil || !value.IsPositive() {
		return errors.New("deposit requires a positive -amount")
	}
	pm := enums.PaymentMethod(*method)
	if !pm.IsDepositMethod() {
		return fmt.Errorf("unsupported payment method %q", *method)
	}
	if _, err := a.requireUser(ctx); err != nil {
		return err
	}

	req := client.DepositRequest{Amount: value, PaymentMethod: pm}
	if *proof != "" {
		req.PaymentProofURL = proof
	}
	var tx client.Transaction
	if err := a.api.Do(ctx, http.MethodPost, depositPath, req, &tx, client.WithIdempotencyKey("")); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "deposit %s submitted for review\n", tx.ID)
	return a.print(tx)
}

func (a *app) batch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("batch", flag.ContinueOnError)
	file := fs.String("file", "", "CSV file of orders")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return errors.New("batch requires -file")
	}
	if _, err := a.requireUser(ctx); err != nil {
		return err
	}

	f, err := os.Open(*file)
	if err != nil {
		return fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	var imp client.BatchImport
	if err := a.api.Upload(ctx, batchPath, "file", filepath.Base(*file), f, &imp, client.WithIdempotencyKey("")); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "imported %d orders from %s, total %s\n", imp.OrderCount, imp.FileName, imp.TotalPrice.StringFixed(2))
	return nil
}

func resultError(msg, code string) error {
	return &client.Error{Code: pkgerrors.Code(code), Message: msg}
}
