package service

import (
	"context"
	"fmt"

	"jewelry-backend/internal/model"
	"jewelry-backend/internal/repository"
	"jewelry-backend/internal/schedule"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type CustomerAddressRequest struct {
	AddressType string `json:"address_type" binding:"required,oneof=BILLING SHIPPING"`
	FullAddress string `json:"full_address" binding:"required"`
	IsDefault   bool   `json:"is_default"`
}

type CreateCustomerRequest struct {
	FirstName string                   `json:"first_name" binding:"required"`
	LastName  string                   `json:"last_name" binding:"required"`
	Email     string                   `json:"email" binding:"required,email"`
	Phone     string                   `json:"phone"`
	UserID    string                   `json:"user_id"` // Optional portal login to link
	Addresses []CustomerAddressRequest `json:"addresses"`
}

type UpdateCustomerRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	IsActive  *bool  `json:"is_active"`
}

type CustomerAddressResponse struct {
	ID          string `json:"id"`
	AddressType string `json:"address_type"`
	FullAddress string `json:"full_address"`
	IsDefault   bool   `json:"is_default"`
}

type CustomerResponse struct {
	ID        string                    `json:"id"`
	FirstName string                    `json:"first_name"`
	LastName  string                    `json:"last_name"`
	Email     string                    `json:"email"`
	Phone     string                    `json:"phone"`
	UserID    *string                   `json:"user_id"`
	IsActive  bool                      `json:"is_active"`
	Addresses []CustomerAddressResponse `json:"addresses"`
	CreatedAt string                    `json:"created_at"`
}

// --- Interface ---

type CustomerService interface {
	CreateCustomer(ctx context.Context, req CreateCustomerRequest, userID string) (CustomerResponse, error)
	GetCustomer(ctx context.Context, id string) (CustomerResponse, error)
	ListCustomers(ctx context.Context, search string, activeOnly bool, page, limit int) ([]CustomerResponse, int64, error)
	UpdateCustomer(ctx context.Context, id string, req UpdateCustomerRequest, userID string) (CustomerResponse, error)
	DeleteCustomer(ctx context.Context, id string, userID string) error
}

type customerService struct {
	repo      repository.CustomerRepository
	txManager repository.TransactionManager
	db        *gorm.DB // audit log only
}

func NewCustomerService(repo repository.CustomerRepository, txManager repository.TransactionManager, db *gorm.DB) CustomerService {
	return &customerService{repo: repo, txManager: txManager, db: db}
}

// --- Implementation ---

func (s *customerService) CreateCustomer(ctx context.Context, req CreateCustomerRequest, userID string) (CustomerResponse, error) {
	if _, err := s.repo.FindByEmail(ctx, req.Email); err == nil {
		return CustomerResponse{}, &schedule.ConflictError{Msg: fmt.Sprintf("customer with email %s already exists", req.Email)}
	}

	customer := model.Customer{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		IsActive:  true,
	}

	if req.UserID != "" {
		linked, err := uuid.Parse(req.UserID)
		if err != nil {
			return CustomerResponse{}, fmt.Errorf("invalid user_id: %w", err)
		}
		customer.UserID = &linked
	}

	for _, a := range req.Addresses {
		customer.Addresses = append(customer.Addresses, model.CustomerAddress{
			AddressType: a.AddressType,
			FullAddress: a.FullAddress,
			IsDefault:   a.IsDefault,
		})
	}

	if err := s.repo.Create(ctx, &customer); err != nil {
		return CustomerResponse{}, fmt.Errorf("failed to create customer: %w", err)
	}

	writeAuditLog(ctx, s.db, userID, model.ActionCreateCustomer, customer.ID.String(), customer.Email, req)

	return toCustomerResponse(customer), nil
}

func (s *customerService) GetCustomer(ctx context.Context, id string) (CustomerResponse, error) {
	customerID, err := uuid.Parse(id)
	if err != nil {
		return CustomerResponse{}, fmt.Errorf("invalid customer id: %w", err)
	}

	customer, err := s.repo.FindByID(ctx, customerID)
	if err != nil {
		return CustomerResponse{}, &schedule.NotFoundError{Msg: "customer not found"}
	}

	return toCustomerResponse(*customer), nil
}

func (s *customerService) ListCustomers(ctx context.Context, search string, activeOnly bool, page, limit int) ([]CustomerResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	customers, total, err := s.repo.List(ctx, repository.CustomerListFilter{
		Search:     search,
		ActiveOnly: activeOnly,
		Page:       page,
		Limit:      limit,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch customers: %w", err)
	}

	result := make([]CustomerResponse, 0, len(customers))
	for _, c := range customers {
		result = append(result, toCustomerResponse(c))
	}
	return result, total, nil
}

func (s *customerService) UpdateCustomer(ctx context.Context, id string, req UpdateCustomerRequest, userID string) (CustomerResponse, error) {
	customerID, err := uuid.Parse(id)
	if err != nil {
		return CustomerResponse{}, fmt.Errorf("invalid customer id: %w", err)
	}

	customer, err := s.repo.FindByID(ctx, customerID)
	if err != nil {
		return CustomerResponse{}, &schedule.NotFoundError{Msg: "customer not found"}
	}

	if req.FirstName != "" {
		customer.FirstName = req.FirstName
	}
	if req.LastName != "" {
		customer.LastName = req.LastName
	}
	if req.Phone != "" {
		customer.Phone = req.Phone
	}
	if req.IsActive != nil {
		customer.IsActive = *req.IsActive
	}

	if err := s.repo.Update(ctx, customer); err != nil {
		return CustomerResponse{}, fmt.Errorf("failed to update customer: %w", err)
	}

	writeAuditLog(ctx, s.db, userID, model.ActionUpdateCustomer, customer.ID.String(), customer.Email, req)

	return toCustomerResponse(*customer), nil
}

func (s *customerService) DeleteCustomer(ctx context.Context, id string, userID string) error {
	customerID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid customer id: %w", err)
	}

	customer, err := s.repo.FindByID(ctx, customerID)
	if err != nil {
		return &schedule.NotFoundError{Msg: "customer not found"}
	}

	if err := s.repo.Delete(ctx, customerID); err != nil {
		return fmt.Errorf("failed to delete customer: %w", err)
	}

	writeAuditLog(ctx, s.db, userID, model.ActionDeleteCustomer, customer.ID.String(), customer.Email, nil)

	return nil
}

// --- Mapping ---

func toCustomerResponse(c model.Customer) CustomerResponse {
	resp := CustomerResponse{
		ID:        c.ID.String(),
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Email:     c.Email,
		Phone:     c.Phone,
		IsActive:  c.IsActive,
		Addresses: []CustomerAddressResponse{},
		CreatedAt: c.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if c.UserID != nil {
		s := c.UserID.String()
		resp.UserID = &s
	}
	for _, a := range c.Addresses {
		resp.Addresses = append(resp.Addresses, CustomerAddressResponse{
			ID:          a.ID.String(),
			AddressType: a.AddressType,
			FullAddress: a.FullAddress,
			IsDefault:   a.IsDefault,
		})
	}
	return resp
}
