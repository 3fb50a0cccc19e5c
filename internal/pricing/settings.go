package pricing

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/richxcame/carwash-pricing/pkg/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Setting keys read from the settings table
const (
	SettingTaxPercentage       = "tax_percentage"
	SettingStripeFeePercentage = "stripe_fee_percentage"
	SettingExtraFeeAmount      = "extra_fee_amount"
)

var settingKeys = []string{SettingTaxPercentage, SettingStripeFeePercentage, SettingExtraFeeAmount}

// SettingsRepository reads adjustment settings from the key/value settings table
type SettingsRepository struct {
	db *sql.DB
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// LoadPricingAdjustmentConfig returns the current snapshot. When the table
// cannot be read it returns a zero config with Missing set and an error
// wrapping ErrPricingConfigMissing. Absent keys are simply unset.
func (r *SettingsRepository) LoadPricingAdjustmentConfig(ctx context.Context) (PricingAdjustmentConfig, error) {
	missing := PricingAdjustmentConfig{Missing: true}

	rows, err := r.db.QueryContext(ctx,
		`SELECT key, value FROM settings WHERE key = ANY($1)`,
		pq.Array(settingKeys),
	)
	if err != nil {
		return missing, fmt.Errorf("%w: %v", ErrPricingConfigMissing, err)
	}
	defer rows.Close()

	var cfg PricingAdjustmentConfig
	for rows.Next() {
		var (
			key   string
			value sql.NullString
		)
		if err := rows.Scan(&key, &value); err != nil {
			return missing, fmt.Errorf("%w: %v", ErrPricingConfigMissing, err)
		}
		if !value.Valid || strings.TrimSpace(value.String) == "" {
			continue
		}
		raw := strings.TrimSpace(value.String)

		switch key {
		case SettingTaxPercentage:
			cfg.TaxPercentage = parsePercentage(ctx, key, raw)
		case SettingStripeFeePercentage:
			cfg.StripeFeePercentage = parsePercentage(ctx, key, raw)
		case SettingExtraFeeAmount:
			cfg.ExtraFeeAmountCents = parseAmountCents(ctx, key, raw)
		}
	}
	if err := rows.Err(); err != nil {
		return missing, fmt.Errorf("%w: %v", ErrPricingConfigMissing, err)
	}

	return cfg, nil
}

func parsePercentage(ctx context.Context, key, raw string) *float64 {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		logger.WithContext(ctx).Warn("ignoring unparsable pricing setting",
			zap.String("key", key),
			zap.String("value", raw),
		)
		return nil
	}
	return &v
}

// parseAmountCents reads a major-unit amount such as "1.00" as cents
func parseAmountCents(ctx context.Context, key, raw string) int64 {
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		logger.WithContext(ctx).Warn("ignoring unparsable pricing setting",
			zap.String("key", key),
			zap.String("value", raw),
		)
		return 0
	}
	return d.Mul(hundred).Round(0).IntPart()
}
