package pricing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/carwash-pricing/internal/zones"
	"github.com/richxcame/carwash-pricing/pkg/cache"
	"github.com/richxcame/carwash-pricing/pkg/i18n"
	"github.com/richxcame/carwash-pricing/pkg/logger"
	"github.com/richxcame/carwash-pricing/pkg/models"
	"github.com/richxcame/carwash-pricing/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var pipelineSteps = []string{"discount", "coupon", "loyalty", "tax", "card_fee"}

// Service produces by-location quotes
type Service struct {
	zones    ZoneService
	prices   ZonePriceResolver
	catalog  ServiceCatalog
	settings SettingsProvider
	quotes   cache.Cache[PriceByLocationResponse]
	ttl      time.Duration
	currency string
	now      func() time.Time
}

// NewService creates a new pricing service
func NewService(
	zoneService ZoneService,
	prices ZonePriceResolver,
	catalog ServiceCatalog,
	settings SettingsProvider,
	quotes cache.Cache[PriceByLocationResponse],
	ttl time.Duration,
	currencyCode string,
) *Service {
	return &Service{
		zones:    zoneService,
		prices:   prices,
		catalog:  catalog,
		settings: settings,
		quotes:   quotes,
		ttl:      ttl,
		currency: currencyCode,
		now:      time.Now,
	}
}

// PriceByLocation prices each requested service at the caller's location.
// Only invalid coordinates produce an error.
func (s *Service) PriceByLocation(ctx context.Context, req PriceByLocationRequest) (*PriceByLocationResponse, error) {
	if req.Lat == nil || req.Lng == nil {
		return nil, zones.ErrInvalidCoordinate
	}
	lat, lng := *req.Lat, *req.Lng
	if err := zones.ValidateCoordinates(lat, lng); err != nil {
		return nil, err
	}

	ctx, span := tracing.StartSpan(ctx, "pricing.PriceByLocation",
		attribute.Float64("lat", lat),
		attribute.Float64("lng", lng),
		attribute.Int("services", len(req.ServiceIDs)),
	)
	defer span.End()

	requestedAt := s.now()
	serviceIDs, skipped := s.parseServiceIDs(ctx, req.ServiceIDs)

	resolution, err := s.zones.Resolve(ctx, lat, lng)
	if err != nil {
		return nil, err
	}

	zoneKey := ""
	if resolution.Zone != nil {
		zoneKey = resolution.Zone.ID.String()
	}
	idStrings := make([]string, len(serviceIDs))
	for i, id := range serviceIDs {
		idStrings[i] = id.String()
	}
	key := cache.PricingKey(zoneKey, idStrings, req.Datetime)

	if cached, ok := s.quotes.Get(ctx, key); ok {
		cached.Cached = true
		cached.RequestedAt = requestedAt
		quotesTotal.WithLabelValues(zoneLabel(resolution), "true").Inc()
		span.SetAttributes(attribute.Bool("cached", true))
		return &cached, nil
	}

	adjustments := s.loadAdjustments(ctx)

	resp := &PriceByLocationResponse{
		Zone:           resolution.Zone.Summary(),
		Prices:         make([]ServicePrice, 0, len(serviceIDs)),
		CurrencyCode:   s.currency,
		CurrencySymbol: i18n.CurrencySymbol(s.currency),
		RequestedAt:    requestedAt,
		TargetDatetime: req.Datetime,
		Explanation: Explanation{
			ResolutionMethod: zones.ResolutionNone,
			ZoneResolved:     resolution.Zone != nil,
			ZoneDegraded:     resolution.Degraded,
			Adjustments:      adjustments.Snapshot(requestedAt),
			ConfigMissing:    adjustments.Missing,
			SkippedServices:  skipped,
			Steps:            pipelineSteps,
		},
	}
	if resp.TargetDatetime == "" {
		resp.TargetDatetime = requestedAt.UTC().Format(time.RFC3339)
	}
	if resolution.Zone != nil {
		m := resolution.Zone.PriceMultiplier
		resp.Explanation.PriceMultiplier = &m
		resp.Explanation.ResolutionMethod = zones.ResolutionPolygonMatch
	}

	for _, id := range serviceIDs {
		base, err := s.catalog.GetServiceBasePrice(ctx, id)
		if err != nil {
			reason := "lookup_failed"
			if errors.Is(err, ErrServiceNotFound) {
				reason = "not_found"
			}
			skippedServicesTotal.WithLabelValues(reason).Inc()
			logger.WithContext(ctx).Warn("skipping service in quote",
				zap.String("service_id", id.String()),
				zap.String("reason", reason),
				zap.Error(err),
			)
			resp.Explanation.SkippedServices = append(resp.Explanation.SkippedServices, id.String())
			continue
		}

		resolved := s.prices.ResolvePrice(ctx, id, resolution.Zone, base.PriceCents, base.DiscountPercentage)
		quote := ComputeFinalPrice(Input{
			BasePriceCents:     resolved.PriceCents,
			DiscountPercentage: resolved.DiscountPercentage,
			Adjustments:        adjustments,
			Path:               models.PaymentTypeCard,
		})

		resp.Prices = append(resp.Prices, ServicePrice{
			ServiceID:          id,
			Name:               base.Name,
			Price:              resolved.PriceCents,
			FormattedPrice:     i18n.FormatCents(resolved.PriceCents, s.currency),
			Source:             resolved.Source,
			ZoneID:             resolved.ZoneID,
			DiscountPercentage: resolved.DiscountPercentage,
			ZoneAdjusted:       resolved.ZoneAdjusted,
			Quote:              quote,
		})
	}

	// degraded inputs are not memoized so recovery shows up on the next request
	if !resolution.Degraded && !adjustments.Missing {
		s.quotes.Set(ctx, key, *resp, s.ttl)
	}

	quotesTotal.WithLabelValues(zoneLabel(resolution), "false").Inc()
	return resp, nil
}

func (s *Service) loadAdjustments(ctx context.Context) PricingAdjustmentConfig {
	cfg, err := s.settings.LoadPricingAdjustmentConfig(ctx)
	if err != nil {
		configMissingTotal.Inc()
		logger.WithContext(ctx).Warn("pricing settings unavailable, using zero tax and fees",
			zap.Bool("config_missing", true),
			zap.Error(err),
		)
		return PricingAdjustmentConfig{Missing: true}
	}
	if cfg.TaxPercentage == nil && cfg.StripeFeePercentage == nil {
		logger.WithContext(ctx).Debug("pricing settings have no tax or fee configured",
			zap.Bool("config_missing", false),
		)
	}
	return cfg
}

// parseServiceIDs keeps the first occurrence of each valid ID
func (s *Service) parseServiceIDs(ctx context.Context, raw []string) ([]uuid.UUID, []string) {
	ids := make([]uuid.UUID, 0, len(raw))
	seen := make(map[uuid.UUID]struct{}, len(raw))
	var skipped []string

	for i, r := range raw {
		id, err := uuid.Parse(r)
		if err != nil {
			logger.WithContext(ctx).Warn("skipping malformed service id",
				zap.Int("index", i),
				zap.String("service_id", r),
			)
			skippedServicesTotal.WithLabelValues("malformed").Inc()
			skipped = append(skipped, r)
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, skipped
}

// ClearCaches drops zone resolutions, the zone list, base prices and quotes
// on every instance.
func (s *Service) ClearCaches(ctx context.Context) {
	s.quotes.Invalidate(ctx, cache.PricingPrefix)
	s.catalog.Invalidate(ctx)
	s.zones.InvalidateCaches(ctx)
	logger.WithContext(ctx).Info("pricing and zone caches cleared")
}

func zoneLabel(r *zones.Resolution) string {
	if r.Zone == nil {
		return "none"
	}
	return "matched"
}
