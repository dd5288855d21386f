package mocks

import (
	"context"

	"reportapi/internal/model"
	"reportapi/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockReportService struct {
	mock.Mock
}

func (m *MockReportService) Save(ctx context.Context, in service.SaveReportInput) (*model.Report, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Report), args.Error(1)
}

func (m *MockReportService) Get(ctx context.Context, requesterID, id string) (*model.Report, error) {
	args := m.Called(ctx, requesterID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Report), args.Error(1)
}

func (m *MockReportService) List(ctx context.Context, requesterID, search string) (*service.ReportListResult, error) {
	args := m.Called(ctx, requesterID, search)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ReportListResult), args.Error(1)
}

func (m *MockReportService) Open(ctx context.Context, requesterID, id string, rep model.Representation) (*service.ReportContent, error) {
	args := m.Called(ctx, requesterID, id, rep)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ReportContent), args.Error(1)
}

func (m *MockReportService) Delete(ctx context.Context, requesterID, id string) error {
	args := m.Called(ctx, requesterID, id)
	return args.Error(0)
}

func (m *MockReportService) DeleteAll(ctx context.Context, requesterID string) (int, error) {
	args := m.Called(ctx, requesterID)
	return args.Int(0), args.Error(1)
}
