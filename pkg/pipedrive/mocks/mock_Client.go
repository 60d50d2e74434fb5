// Package mocks provides test doubles for the pipedrive client.
package mocks

import (
	"context"

	pipedrive "github.com/sells-group/dealsync/pkg/pipedrive"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// DealSummary provides a mock function with given fields: ctx
func (_m *MockClient) DealSummary(ctx context.Context) (int, error) {
	ret := _m.Called(ctx)

	if len(ret) == 0 {
		panic("no return value specified for DealSummary")
	}

	var r0 int
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context) (int, error)); ok {
		return rf(ctx)
	}
	if rf, ok := ret.Get(0).(func(context.Context) int); ok {
		r0 = rf(ctx)
	} else {
		r0 = ret.Get(0).(int)
	}

	if rf, ok := ret.Get(1).(func(context.Context) error); ok {
		r1 = rf(ctx)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// ListDeals provides a mock function with given fields: ctx, start, limit
func (_m *MockClient) ListDeals(ctx context.Context, start int, limit int) ([]pipedrive.DealItem, error) {
	ret := _m.Called(ctx, start, limit)

	if len(ret) == 0 {
		panic("no return value specified for ListDeals")
	}

	var r0 []pipedrive.DealItem
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, int, int) ([]pipedrive.DealItem, error)); ok {
		return rf(ctx, start, limit)
	}
	if rf, ok := ret.Get(0).(func(context.Context, int, int) []pipedrive.DealItem); ok {
		r0 = rf(ctx, start, limit)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]pipedrive.DealItem)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, int, int) error); ok {
		r1 = rf(ctx, start, limit)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// GetPerson provides a mock function with given fields: ctx, id
func (_m *MockClient) GetPerson(ctx context.Context, id string) (*pipedrive.PersonDetail, error) {
	ret := _m.Called(ctx, id)

	if len(ret) == 0 {
		panic("no return value specified for GetPerson")
	}

	var r0 *pipedrive.PersonDetail
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (*pipedrive.PersonDetail, error)); ok {
		return rf(ctx, id)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) *pipedrive.PersonDetail); ok {
		r0 = rf(ctx, id)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*pipedrive.PersonDetail)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, id)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// GetDeal provides a mock function with given fields: ctx, id
func (_m *MockClient) GetDeal(ctx context.Context, id string) (*pipedrive.DealDetail, error) {
	ret := _m.Called(ctx, id)

	if len(ret) == 0 {
		panic("no return value specified for GetDeal")
	}

	var r0 *pipedrive.DealDetail
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (*pipedrive.DealDetail, error)); ok {
		return rf(ctx, id)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) *pipedrive.DealDetail); ok {
		r0 = rf(ctx, id)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*pipedrive.DealDetail)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, id)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockClient creates a new instance of MockClient.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	mock := &MockClient{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
