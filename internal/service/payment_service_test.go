package service

import (
	"context"
	"testing"

	"jewelry-backend/internal/model"
	"jewelry-backend/internal/repository"
	"jewelry-backend/internal/schedule"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stubPaymentRepo struct {
	repository.PaymentRepository
	payments map[uuid.UUID]*model.Payment
}

func newStubPaymentRepo() *stubPaymentRepo {
	return &stubPaymentRepo{payments: map[uuid.UUID]*model.Payment{}}
}

func (r *stubPaymentRepo) add(p model.Payment) *model.Payment {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.payments[p.ID] = &p
	return &p
}

func (r *stubPaymentRepo) FindByIDWithAllocations(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	p, ok := r.payments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func TestGetPaymentScopedToLinkedCustomer(t *testing.T) {
	customers := newStubCustomerRepo()
	userID := uuid.New()
	owner := customers.add(model.Customer{FirstName: "Mia", LastName: "Reyes", Email: "mia@example.com", UserID: &userID})
	other := customers.add(model.Customer{FirstName: "Leo", LastName: "Tan", Email: "leo@example.com"})

	payments := newStubPaymentRepo()
	ownPayment := payments.add(model.Payment{
		InvoiceID:         uuid.New(),
		CustomerID:        owner.ID,
		AmountPaid:        decimal.NewFromInt(500),
		Status:            model.PaymentPending,
		SelectedSchedules: "[]",
	})
	foreignPayment := payments.add(model.Payment{
		InvoiceID:         uuid.New(),
		CustomerID:        other.ID,
		AmountPaid:        decimal.NewFromInt(900),
		Status:            model.PaymentPending,
		SelectedSchedules: "[]",
	})

	svc := NewPaymentService(payments, nil, nil, customers, stubTxManager{}, &stubNotifier{}, nil)

	caller := Caller{UserID: userID.String(), Role: model.RoleCustomer}

	resp, err := svc.GetPayment(context.Background(), ownPayment.ID.String(), caller)
	require.NoError(t, err)
	assert.Equal(t, ownPayment.ID.String(), resp.ID)

	_, err = svc.GetPayment(context.Background(), foreignPayment.ID.String(), caller)
	var notFound *schedule.NotFoundError
	require.ErrorAs(t, err, &notFound)

	// Staff reads stay unrestricted.
	resp, err = svc.GetPayment(context.Background(), foreignPayment.ID.String(), Caller{UserID: uuid.New().String(), Role: model.RoleStaff})
	require.NoError(t, err)
	assert.Equal(t, foreignPayment.ID.String(), resp.ID)
}
