package mocks

import (
	"context"

	"github.com/richxcame/carwash-pricing/internal/pricing"
	"github.com/stretchr/testify/mock"
)

// MockSettingsProvider is a mock implementation of pricing.SettingsProvider
type MockSettingsProvider struct {
	mock.Mock
}

func (m *MockSettingsProvider) LoadPricingAdjustmentConfig(ctx context.Context) (pricing.PricingAdjustmentConfig, error) {
	args := m.Called(ctx)
	return args.Get(0).(pricing.PricingAdjustmentConfig), args.Error(1)
}
