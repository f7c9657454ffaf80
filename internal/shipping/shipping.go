// Package shipping prices delivery by great-circle distance between a shop
// and the buyer's address.
package shipping

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/quochiep16/mini-e/internal/config"
	"github.com/shopspring/decimal"
)

const EarthRadiusKm = 6371.0

// Distance returns the haversine distance in kilometers.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(d float64) float64 { return d * math.Pi / 180 }

	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Pow(math.Sin(dLat/2), 2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Pow(math.Sin(dLon/2), 2)

	return EarthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

type Band struct {
	MaxKm float64
	Fee   decimal.Decimal
}

// FeeTable is a step function over distance bands. A zero FreeThreshold
// disables free shipping.
type FeeTable struct {
	Bands         []Band
	BeyondFee     decimal.Decimal
	FreeThreshold decimal.Decimal
}

func DefaultFeeTable() FeeTable {
	return FeeTable{
		Bands: []Band{
			{MaxKm: 20, Fee: decimal.NewFromInt(10_000)},
			{MaxKm: 50, Fee: decimal.NewFromInt(20_000)},
			{MaxKm: 200, Fee: decimal.NewFromInt(30_000)},
		},
		BeyondFee:     decimal.NewFromInt(40_000),
		FreeThreshold: decimal.NewFromInt(500_000),
	}
}

func (t FeeTable) Fee(distanceKm float64, subtotal decimal.Decimal) decimal.Decimal {
	if t.FreeThreshold.IsPositive() && subtotal.GreaterThanOrEqual(t.FreeThreshold) {
		return decimal.Zero
	}
	for _, b := range t.Bands {
		if distanceKm <= b.MaxKm {
			return b.Fee
		}
	}
	return t.BeyondFee
}

// NewFeeTable parses the configured table. Bands must be listed with strictly
// increasing distances and non-decreasing fees.
func NewFeeTable(cfg *config.Shipping) (FeeTable, error) {
	var table FeeTable

	for _, pair := range strings.Split(cfg.Bands, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		km, fee, ok := strings.Cut(pair, ":")
		if !ok {
			return FeeTable{}, fmt.Errorf("shipping band %q: want maxKm:fee", pair)
		}
		maxKm, err := strconv.ParseFloat(strings.TrimSpace(km), 64)
		if err != nil {
			return FeeTable{}, fmt.Errorf("shipping band %q distance: %w", pair, err)
		}
		amount, err := decimal.NewFromString(strings.TrimSpace(fee))
		if err != nil {
			return FeeTable{}, fmt.Errorf("shipping band %q fee: %w", pair, err)
		}
		table.Bands = append(table.Bands, Band{MaxKm: maxKm, Fee: amount})
	}

	sort.SliceStable(table.Bands, func(i, j int) bool { return table.Bands[i].MaxKm < table.Bands[j].MaxKm })

	beyond, err := decimal.NewFromString(cfg.BeyondFee)
	if err != nil {
		return FeeTable{}, fmt.Errorf("shipping beyond fee: %w", err)
	}
	table.BeyondFee = beyond

	if cfg.FreeThreshold != "" {
		free, err := decimal.NewFromString(cfg.FreeThreshold)
		if err != nil {
			return FeeTable{}, fmt.Errorf("shipping free threshold: %w", err)
		}
		table.FreeThreshold = free
	}

	prev := decimal.Zero
	for i, b := range table.Bands {
		if i > 0 && b.MaxKm == table.Bands[i-1].MaxKm {
			return FeeTable{}, fmt.Errorf("shipping band %v km listed twice", b.MaxKm)
		}
		if b.Fee.LessThan(prev) {
			return FeeTable{}, fmt.Errorf("shipping band %v km: fee decreases", b.MaxKm)
		}
		prev = b.Fee
	}
	if table.BeyondFee.LessThan(prev) {
		return FeeTable{}, fmt.Errorf("shipping beyond fee below last band")
	}

	return table, nil
}
