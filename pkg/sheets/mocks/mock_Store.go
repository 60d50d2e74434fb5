// Package mocks provides test doubles for the sheets store.
package mocks

import (
	"context"

	sheets "github.com/sells-group/dealsync/pkg/sheets"
	mock "github.com/stretchr/testify/mock"
)

// MockStore is a mock type for the Store interface.
type MockStore struct {
	mock.Mock
}

// BatchGet provides a mock function with given fields: ctx, spreadsheetID, ranges
func (_m *MockStore) BatchGet(ctx context.Context, spreadsheetID string, ranges []string) ([]sheets.ValueRange, error) {
	ret := _m.Called(ctx, spreadsheetID, ranges)

	if len(ret) == 0 {
		panic("no return value specified for BatchGet")
	}

	var r0 []sheets.ValueRange
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, []string) ([]sheets.ValueRange, error)); ok {
		return rf(ctx, spreadsheetID, ranges)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string, []string) []sheets.ValueRange); ok {
		r0 = rf(ctx, spreadsheetID, ranges)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]sheets.ValueRange)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string, []string) error); ok {
		r1 = rf(ctx, spreadsheetID, ranges)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// BatchUpdate provides a mock function with given fields: ctx, spreadsheetID, data
func (_m *MockStore) BatchUpdate(ctx context.Context, spreadsheetID string, data []sheets.ValueRange) error {
	ret := _m.Called(ctx, spreadsheetID, data)

	if len(ret) == 0 {
		panic("no return value specified for BatchUpdate")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, string, []sheets.ValueRange) error); ok {
		r0 = rf(ctx, spreadsheetID, data)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// FindSpreadsheet provides a mock function with given fields: ctx, name
func (_m *MockStore) FindSpreadsheet(ctx context.Context, name string) (string, error) {
	ret := _m.Called(ctx, name)

	if len(ret) == 0 {
		panic("no return value specified for FindSpreadsheet")
	}

	var r0 string
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (string, error)); ok {
		return rf(ctx, name)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) string); ok {
		r0 = rf(ctx, name)
	} else {
		r0 = ret.Get(0).(string)
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, name)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockStore creates a new instance of MockStore.
func NewMockStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockStore {
	mock := &MockStore{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
