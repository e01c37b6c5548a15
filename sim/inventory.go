package sim

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DescriptionRestock is the payment description of supplier restocks.
const DescriptionRestock = "Inventory restock"

var (
	factorLow  = decimal.RequireFromString("0.9")
	factorHigh = decimal.RequireFromString("1.1")
)

// InventoryManager depletes medication stock and restocks it from suppliers.
type InventoryManager struct {
	cfg     InventoryConfig
	catalog *Catalog
	store   InventoryStore
	rng     *rand.Rand
	obs     Observer
}

// NewInventoryManager wires inventory to its catalog, store and random stream.
func NewInventoryManager(cfg InventoryConfig, catalog *Catalog, store InventoryStore, rng *rand.Rand, obs Observer) *InventoryManager {
	if obs == nil {
		obs = NopObserver{}
	}
	return &InventoryManager{cfg: cfg, catalog: catalog, store: store, rng: rng, obs: obs}
}

// DepletionDue reports whether now is the daily depletion hour.
func (m *InventoryManager) DepletionDue(now time.Time) bool {
	return now.Hour() == m.cfg.DepletionHour
}

// RestockDue reports whether now is the daily restock-check hour.
func (m *InventoryManager) RestockDue(now time.Time) bool {
	return now.Hour() == m.cfg.RestockHour
}

// Deplete reduces every record's stock by a uniform random share in
// [DepletionMin, DepletionMax), floored at zero. Returns the number of
// records updated.
func (m *InventoryManager) Deplete(ctx context.Context, now time.Time) (int, error) {
	records, err := m.store.InventoryLevels(ctx)
	if err != nil {
		return 0, fmt.Errorf("read inventory levels: %w", err)
	}
	var consumed int64
	for _, r := range records {
		pct := uniform(m.rng, m.cfg.DepletionMin, m.cfg.DepletionMax)
		reduce := int64(float64(r.CurrentStock) * pct)
		stock := max(r.CurrentStock-reduce, 0)
		if err := m.store.SetStock(ctx, r.FacilityID, r.MedicationID, stock); err != nil {
			return 0, fmt.Errorf("deplete facility %d medication %d: %w", r.FacilityID, r.MedicationID, err)
		}
		consumed += r.CurrentStock - stock
	}
	m.obs.Observe(Observation{Kind: KindDepletion, At: now, Attrs: map[string]any{
		"records":  len(records),
		"consumed": consumed,
	}})
	return len(records), nil
}

// CheckRestock restocks every record below its minimum from a supplier that
// carries the medication. Records with no known supplier are skipped.
// Returns the number of restocks performed.
func (m *InventoryManager) CheckRestock(ctx context.Context, now time.Time) (int, error) {
	records, err := m.store.InventoryLevels(ctx)
	if err != nil {
		return 0, fmt.Errorf("read inventory levels: %w", err)
	}
	restocked := 0
	for _, r := range records {
		if r.CurrentStock >= r.MinimumStock {
			continue
		}
		suppliers := m.catalog.SuppliersFor(r.MedicationID)
		if len(suppliers) == 0 {
			m.obs.Observe(Observation{Kind: KindRestockSkipped, At: now, Attrs: map[string]any{
				"facility_id":   r.FacilityID,
				"medication_id": r.MedicationID,
				"current_stock": r.CurrentStock,
				"minimum_stock": r.MinimumStock,
			}})
			continue
		}
		supplier := suppliers[m.rng.Intn(len(suppliers))]
		if _, err := m.Restock(ctx, r, supplier, now); err != nil {
			return restocked, err
		}
		restocked++
	}
	return restocked, nil
}

// Restock orders RestockQuantity units of the record's medication. With
// AnomalyProbability the delivery quantity and the paid unit price are each
// scaled by an independent draw from {0.9, 1.1} and the anomaly is recorded;
// otherwise the order is filled exactly at catalog price.
func (m *InventoryManager) Restock(ctx context.Context, r InventoryRecord, supplierID int64, now time.Time) (RestockReceipt, error) {
	med, ok := m.catalog.Medication(r.MedicationID)
	if !ok {
		return RestockReceipt{}, fmt.Errorf("restock medication %d: %w", r.MedicationID, ErrMissingReference)
	}

	requested := m.cfg.RestockQuantity
	receipt := RestockReceipt{
		FacilityID:        r.FacilityID,
		MedicationID:      r.MedicationID,
		SupplierID:        supplierID,
		RequestedQuantity: requested,
		ReceivedQuantity:  requested,
		ExpectedUnitPrice: med.UnitCost,
		PaidUnitPrice:     med.UnitCost,
		Description:       DescriptionRestock,
		At:                now,
	}

	if m.rng.Float64() < m.cfg.AnomalyProbability {
		qtyFactor := m.factor()
		priceFactor := m.factor()
		receipt.ReceivedQuantity = decimal.NewFromInt(requested).Mul(qtyFactor).IntPart()
		receipt.PaidUnitPrice = med.UnitCost.Mul(priceFactor)
		receipt.Anomaly = &SupplyAnomaly{
			Type:              supplyAnomalyType(qtyFactor, priceFactor),
			ExpectedQuantity:  requested,
			ReceivedQuantity:  receipt.ReceivedQuantity,
			ExpectedUnitPrice: med.UnitCost,
			PaidUnitPrice:     receipt.PaidUnitPrice,
			Notes:             "Auto-detected supply anomaly",
		}
	}
	receipt.Payment = receipt.PaidUnitPrice.Mul(decimal.NewFromInt(receipt.ReceivedQuantity))

	orderID, err := m.store.RecordRestock(ctx, receipt)
	if err != nil {
		return receipt, fmt.Errorf("restock facility %d medication %d: %w", r.FacilityID, r.MedicationID, err)
	}

	m.obs.Observe(Observation{Kind: KindRestock, At: now, Attrs: map[string]any{
		"order_id":      orderID,
		"facility_id":   r.FacilityID,
		"medication_id": r.MedicationID,
		"supplier_id":   supplierID,
		"received":      receipt.ReceivedQuantity,
		"payment":       receipt.Payment,
		"stock_before":  r.CurrentStock,
	}})
	if a := receipt.Anomaly; a != nil {
		m.obs.Observe(Observation{Kind: KindSupplyAnomaly, At: now, Attrs: map[string]any{
			"order_id":            orderID,
			"medication_id":       r.MedicationID,
			"anomaly_type":        a.Type,
			"expected_quantity":   a.ExpectedQuantity,
			"received_quantity":   a.ReceivedQuantity,
			"expected_unit_price": a.ExpectedUnitPrice,
			"paid_unit_price":     a.PaidUnitPrice,
		}})
	}
	return receipt, nil
}

func (m *InventoryManager) factor() decimal.Decimal {
	if m.rng.Intn(2) == 0 {
		return factorLow
	}
	return factorHigh
}

func supplyAnomalyType(qtyFactor, priceFactor decimal.Decimal) string {
	parts := make([]string, 0, 2)
	if qtyFactor.LessThan(decimal.NewFromInt(1)) {
		parts = append(parts, "Under-delivery")
	} else {
		parts = append(parts, "Over-delivery")
	}
	if priceFactor.LessThan(decimal.NewFromInt(1)) {
		parts = append(parts, "Underpayment")
	} else {
		parts = append(parts, "Overpayment")
	}
	return strings.Join(parts, ", ")
}
