package mocks

import (
	"context"
	"time"

	"reportapi/internal/model"
	"reportapi/internal/repository"

	"github.com/stretchr/testify/mock"
)

type MockReportRepository struct {
	mock.Mock
}

func (m *MockReportRepository) Create(ctx context.Context, rep *model.Report) (*model.Report, error) {
	args := m.Called(ctx, rep)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	if f, ok := args.Get(0).(func(context.Context, *model.Report) *model.Report); ok {
		return f(ctx, rep), args.Error(1)
	}
	return args.Get(0).(*model.Report), args.Error(1)
}

func (m *MockReportRepository) FindByID(ctx context.Context, id string) (*model.Report, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Report), args.Error(1)
}

func (m *MockReportRepository) ListByOwner(ctx context.Context, ownerID, search string) ([]model.Report, error) {
	args := m.Called(ctx, ownerID, search)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Report), args.Error(1)
}

func (m *MockReportRepository) Delete(ctx context.Context, id string) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockReportRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) ([]repository.DeletedReport, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.DeletedReport), args.Error(1)
}
