package service

import (
	"context"
	"testing"
	"time"

	"jewelry-backend/internal/model"
	"jewelry-backend/internal/repository"
	"jewelry-backend/internal/schedule"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// In-memory stubs. Each embeds its interface so only the methods a test path
// touches need an implementation.

type stubTxManager struct{}

func (stubTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

type stubNotifier struct {
	events []string
}

func (n *stubNotifier) Publish(event string, payload interface{}) {
	n.events = append(n.events, event)
}

type stubTaxRules struct {
	TaxRuleService
	rates   map[string]decimal.Decimal
	ruleIDs map[string]uuid.UUID
}

func newStubTaxRules() *stubTaxRules {
	return &stubTaxRules{rates: map[string]decimal.Decimal{}, ruleIDs: map[string]uuid.UUID{}}
}

func (s *stubTaxRules) ResolveRate(ctx context.Context, kind string, targetDate time.Time) (decimal.Decimal, *uuid.UUID, error) {
	rate, ok := s.rates[kind]
	if !ok {
		return decimal.Zero, nil, nil
	}
	if id, ok := s.ruleIDs[kind]; ok {
		return rate, &id, nil
	}
	return rate, nil, nil
}

type stubInvoiceRepo struct {
	repository.InvoiceRepository
	invoices map[uuid.UUID]*model.Invoice
}

func newStubInvoiceRepo() *stubInvoiceRepo {
	return &stubInvoiceRepo{invoices: map[uuid.UUID]*model.Invoice{}}
}

func (r *stubInvoiceRepo) Create(ctx context.Context, invoice *model.Invoice) error {
	if invoice.ID == uuid.Nil {
		invoice.ID = uuid.New()
	}
	cp := *invoice
	r.invoices[invoice.ID] = &cp
	return nil
}

func (r *stubInvoiceRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	inv, ok := r.invoices[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *inv
	return &cp, nil
}

func (r *stubInvoiceRepo) FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	return r.FindByID(ctx, id)
}

func (r *stubInvoiceRepo) List(ctx context.Context, filter repository.InvoiceListFilter) ([]model.Invoice, int64, error) {
	var out []model.Invoice
	for _, inv := range r.invoices {
		if filter.CustomerID != nil && inv.CustomerID != *filter.CustomerID {
			continue
		}
		out = append(out, *inv)
	}
	return out, int64(len(out)), nil
}

func (r *stubInvoiceRepo) Update(ctx context.Context, invoice *model.Invoice) error {
	cp := *invoice
	r.invoices[invoice.ID] = &cp
	return nil
}

func (r *stubInvoiceRepo) CountByPrefix(ctx context.Context, prefix string) (int64, error) {
	return int64(len(r.invoices)), nil
}

type stubScheduleRepo struct {
	repository.ScheduleRepository
	rows map[uuid.UUID][]model.InvoicePaymentSchedule
}

func newStubScheduleRepo() *stubScheduleRepo {
	return &stubScheduleRepo{rows: map[uuid.UUID][]model.InvoicePaymentSchedule{}}
}

func (r *stubScheduleRepo) FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]model.InvoicePaymentSchedule, error) {
	return r.rows[invoiceID], nil
}

func (r *stubScheduleRepo) CountByInvoice(ctx context.Context, invoiceID uuid.UUID) (int64, error) {
	return int64(len(r.rows[invoiceID])), nil
}

func (r *stubScheduleRepo) CreateBatch(ctx context.Context, rows []model.InvoicePaymentSchedule) error {
	if len(rows) == 0 {
		return nil
	}
	r.rows[rows[0].InvoiceID] = append(r.rows[rows[0].InvoiceID], rows...)
	return nil
}

type stubCustomerRepo struct {
	repository.CustomerRepository
	customers map[uuid.UUID]*model.Customer
}

func newStubCustomerRepo() *stubCustomerRepo {
	return &stubCustomerRepo{customers: map[uuid.UUID]*model.Customer{}}
}

func (r *stubCustomerRepo) add(c model.Customer) *model.Customer {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	r.customers[c.ID] = &c
	return &c
}

func (r *stubCustomerRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	c, ok := r.customers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return c, nil
}

func (r *stubCustomerRepo) FindByUserID(ctx context.Context, userID uuid.UUID) (*model.Customer, error) {
	for _, c := range r.customers {
		if c.UserID != nil && *c.UserID == userID {
			return c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

type invoiceServiceFixture struct {
	invoices  *stubInvoiceRepo
	schedules *stubScheduleRepo
	customers *stubCustomerRepo
	taxRules  *stubTaxRules
	svc       InvoiceService
}

func newInvoiceServiceFixture() *invoiceServiceFixture {
	f := &invoiceServiceFixture{
		invoices:  newStubInvoiceRepo(),
		schedules: newStubScheduleRepo(),
		customers: newStubCustomerRepo(),
		taxRules:  newStubTaxRules(),
	}
	f.svc = NewInvoiceService(f.invoices, f.schedules, nil, f.customers, f.taxRules, stubTxManager{}, &stubNotifier{}, nil)
	return f
}

func TestCreateInvoiceDerivesChargesFromActiveRules(t *testing.T) {
	f := newInvoiceServiceFixture()
	customer := f.customers.add(model.Customer{FirstName: "Mia", LastName: "Reyes", Email: "mia@example.com"})

	vatRuleID := uuid.New()
	f.taxRules.rates[model.RuleKindVAT] = decimal.RequireFromString("0.12")
	f.taxRules.ruleIDs[model.RuleKindVAT] = vatRuleID
	f.taxRules.rates[model.RuleKindLuxuryFee] = decimal.RequireFromString("0.05")
	f.taxRules.rates[model.RuleKindDiscount] = decimal.RequireFromString("0.02")

	resp, err := f.svc.CreateInvoice(context.Background(), CreateInvoiceRequest{
		CustomerID: customer.ID.String(),
		Subtotal:   "10000.00",
	}, "")
	require.NoError(t, err)

	assert.Equal(t, "1200.00", resp.TaxAmount)
	assert.Equal(t, "500.00", resp.FeeAmount)
	assert.Equal(t, "200.00", resp.DiscountAmount)
	assert.Equal(t, "11500.00", resp.TotalAmount)
	require.NotNil(t, resp.TaxRuleID)
	assert.Equal(t, vatRuleID.String(), *resp.TaxRuleID)
}

func TestCreateInvoiceExplicitChargesOverrideRules(t *testing.T) {
	f := newInvoiceServiceFixture()
	customer := f.customers.add(model.Customer{FirstName: "Mia", LastName: "Reyes", Email: "mia@example.com"})

	f.taxRules.rates[model.RuleKindVAT] = decimal.RequireFromString("0.12")
	f.taxRules.rates[model.RuleKindLuxuryFee] = decimal.RequireFromString("0.05")
	f.taxRules.rates[model.RuleKindDiscount] = decimal.RequireFromString("0.02")

	resp, err := f.svc.CreateInvoice(context.Background(), CreateInvoiceRequest{
		CustomerID:     customer.ID.String(),
		Subtotal:       "10000.00",
		FeeAmount:      "100.00",
		DiscountAmount: "50.00",
	}, "")
	require.NoError(t, err)

	assert.Equal(t, "1200.00", resp.TaxAmount)
	assert.Equal(t, "100.00", resp.FeeAmount)
	assert.Equal(t, "50.00", resp.DiscountAmount)
	assert.Equal(t, "11250.00", resp.TotalAmount)
}

func TestCreateInvoiceNoActiveRulesChargesNothing(t *testing.T) {
	f := newInvoiceServiceFixture()
	customer := f.customers.add(model.Customer{FirstName: "Mia", LastName: "Reyes", Email: "mia@example.com"})

	resp, err := f.svc.CreateInvoice(context.Background(), CreateInvoiceRequest{
		CustomerID: customer.ID.String(),
		Subtotal:   "800.00",
	}, "")
	require.NoError(t, err)

	assert.Equal(t, "0.00", resp.TaxAmount)
	assert.Equal(t, "0.00", resp.FeeAmount)
	assert.Equal(t, "0.00", resp.DiscountAmount)
	assert.Equal(t, "800.00", resp.TotalAmount)
	assert.Nil(t, resp.TaxRuleID)
}

func TestCreateInvoiceDefaultsIssueDateToToday(t *testing.T) {
	f := newInvoiceServiceFixture()
	customer := f.customers.add(model.Customer{FirstName: "Mia", LastName: "Reyes", Email: "mia@example.com"})

	resp, err := f.svc.CreateInvoice(context.Background(), CreateInvoiceRequest{
		CustomerID: customer.ID.String(),
		Subtotal:   "500.00",
	}, "")
	require.NoError(t, err)

	assert.Equal(t, time.Now().Format("2006-01-02"), resp.IssueDate)
}

func TestGetInvoiceScopedToLinkedCustomer(t *testing.T) {
	f := newInvoiceServiceFixture()
	userID := uuid.New()
	owner := f.customers.add(model.Customer{FirstName: "Mia", LastName: "Reyes", Email: "mia@example.com", UserID: &userID})
	other := f.customers.add(model.Customer{FirstName: "Leo", LastName: "Tan", Email: "leo@example.com"})

	ownInvoice := &model.Invoice{CustomerID: owner.ID, TotalAmount: decimal.NewFromInt(1000), RemainingBalance: decimal.NewFromInt(1000), PaymentStatus: model.PaymentStatusUnpaid}
	require.NoError(t, f.invoices.Create(context.Background(), ownInvoice))
	otherInvoice := &model.Invoice{CustomerID: other.ID, TotalAmount: decimal.NewFromInt(2000), RemainingBalance: decimal.NewFromInt(2000), PaymentStatus: model.PaymentStatusUnpaid}
	require.NoError(t, f.invoices.Create(context.Background(), otherInvoice))

	caller := Caller{UserID: userID.String(), Role: model.RoleCustomer}

	resp, err := f.svc.GetInvoice(context.Background(), ownInvoice.ID.String(), caller)
	require.NoError(t, err)
	assert.Equal(t, ownInvoice.ID.String(), resp.ID)

	_, err = f.svc.GetInvoice(context.Background(), otherInvoice.ID.String(), caller)
	var notFound *schedule.NotFoundError
	require.ErrorAs(t, err, &notFound)

	_, err = f.svc.ListSchedules(context.Background(), otherInvoice.ID.String(), caller)
	require.ErrorAs(t, err, &notFound)
}

func TestListInvoicesScopedToLinkedCustomer(t *testing.T) {
	f := newInvoiceServiceFixture()
	userID := uuid.New()
	owner := f.customers.add(model.Customer{FirstName: "Mia", LastName: "Reyes", Email: "mia@example.com", UserID: &userID})
	other := f.customers.add(model.Customer{FirstName: "Leo", LastName: "Tan", Email: "leo@example.com"})

	require.NoError(t, f.invoices.Create(context.Background(), &model.Invoice{CustomerID: owner.ID}))
	require.NoError(t, f.invoices.Create(context.Background(), &model.Invoice{CustomerID: other.ID}))

	// Staff sees everything.
	all, total, err := f.svc.ListInvoices(context.Background(), InvoiceFilter{}, Caller{UserID: uuid.New().String(), Role: model.RoleStaff})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, all, 2)

	// A customer only ever sees their own, even when asking for someone else's.
	own, total, err := f.svc.ListInvoices(context.Background(), InvoiceFilter{CustomerID: other.ID.String()},
		Caller{UserID: userID.String(), Role: model.RoleCustomer})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, own, 1)
	assert.Equal(t, owner.ID.String(), own[0].CustomerID)
}

func TestListInvoicesUnlinkedCustomerLogin(t *testing.T) {
	f := newInvoiceServiceFixture()

	_, _, err := f.svc.ListInvoices(context.Background(), InvoiceFilter{},
		Caller{UserID: uuid.New().String(), Role: model.RoleCustomer})
	var notFound *schedule.NotFoundError
	require.ErrorAs(t, err, &notFound)
}
