package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"fileportal/internal/model"
	"fileportal/internal/service"
)

type MockCompanyService struct {
	mock.Mock
}

func (m *MockCompanyService) Create(ctx context.Context, in service.CompanyInput) (*model.Company, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Company), args.Error(1)
}

func (m *MockCompanyService) Get(ctx context.Context, id string) (*model.Company, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Company), args.Error(1)
}

func (m *MockCompanyService) List(ctx context.Context) ([]model.Company, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Company), args.Error(1)
}

func (m *MockCompanyService) Search(ctx context.Context, query string) ([]model.Company, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Company), args.Error(1)
}

func (m *MockCompanyService) ListWithStats(ctx context.Context) ([]model.CompanyStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CompanyStats), args.Error(1)
}

func (m *MockCompanyService) Update(ctx context.Context, id string, in service.CompanyInput) (*model.Company, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Company), args.Error(1)
}

func (m *MockCompanyService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCompanyService) BulkDelete(ctx context.Context, ids []string) []service.BulkDeleteResult {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]service.BulkDeleteResult)
}

func (m *MockCompanyService) ExportCSV(ctx context.Context, w io.Writer) error {
	args := m.Called(ctx, w)
	if fn, ok := args.Get(0).(func(io.Writer)); ok {
		fn(w)
		return args.Error(1)
	}
	return args.Error(0)
}
