package cache

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Key prefixes, shared by invalidation.
const (
	ZonePrefix    = "zone:"
	PricingPrefix = "pricing:"
)

// Key fragments.
const (
	zoneLocationPrefix = ZonePrefix + "loc:"
	servicePricePrefix = PricingPrefix + "svc:"
	zoneListKey        = ZonePrefix + "list"
	globalZone         = "global"
	nowMarker          = "now"
)

// CoordinatePrecision is the number of decimal places kept in location keys (about 11 m).
const CoordinatePrecision = 4

// RoundCoordinate rounds to CoordinatePrecision places, half away from zero.
func RoundCoordinate(v float64) string {
	return decimal.NewFromFloat(v).Round(CoordinatePrecision).StringFixed(CoordinatePrecision)
}

// ZoneLocationKey is the key for a zone resolution result.
func ZoneLocationKey(lat, lng float64) string {
	return zoneLocationPrefix + RoundCoordinate(lat) + ":" + RoundCoordinate(lng)
}

// ZoneListKey is the key for the active zone snapshot.
func ZoneListKey() string {
	return zoneListKey
}

// ServicePriceKey is the key for a catalog base price snapshot.
func ServicePriceKey(serviceID string) string {
	return servicePricePrefix + serviceID
}

// PricingKey is the key for a by-location pricing result. Service IDs are
// sorted so request order does not fragment the cache.
func PricingKey(zoneID string, serviceIDs []string, datetime string) string {
	if zoneID == "" {
		zoneID = globalZone
	}
	if datetime == "" {
		datetime = nowMarker
	}

	ids := make([]string, len(serviceIDs))
	copy(ids, serviceIDs)
	sort.Strings(ids)

	var b strings.Builder
	b.WriteString(PricingPrefix)
	b.WriteString(zoneID)
	b.WriteByte(':')
	b.WriteString(strings.Join(ids, ","))
	b.WriteByte(':')
	b.WriteString(datetime)
	return b.String()
}
