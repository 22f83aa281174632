package source

import (
	"context"

	"github.com/huangsam/kpiscore/internal/contract"
	"github.com/huangsam/kpiscore/schema"
	"github.com/stretchr/testify/mock"
)

// MockSourceLoader is a mock implementation of SourceLoader for testing.
type MockSourceLoader struct {
	mock.Mock
}

var _ contract.SourceLoader = &MockSourceLoader{} // Compile-time check

// Load implements the SourceLoader interface.
func (m *MockSourceLoader) Load(ctx context.Context, category schema.Category) (schema.RecordSet, error) {
	args := m.Called(ctx, category)
	return args.Get(0).(schema.RecordSet), args.Error(1)
}

// Fingerprint implements the SourceLoader interface.
func (m *MockSourceLoader) Fingerprint(ctx context.Context, category schema.Category) (string, error) {
	args := m.Called(ctx, category)
	return args.String(0), args.Error(1)
}

// Location implements the SourceLoader interface.
func (m *MockSourceLoader) Location() string {
	args := m.Called()
	return args.String(0)
}
