// Package synthetic generates realistic-looking records for demos, load runs
// and tests. A generator built with New is fully deterministic for its seed.
package synthetic

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"bizpulse/pkg/contracts/domain"
)

var (
	firstNames = []string{"Amira", "Ben", "Carla", "Dmitri", "Elena", "Farid", "Grace", "Hugo", "Ines", "Jonah"}
	lastNames  = []string{"Alvarez", "Brooks", "Chen", "Dubois", "Eriksen", "Fischer", "Garcia", "Haddad", "Ito", "Jensen"}
	cities     = []string{"Austin", "Boston", "Chicago", "Denver", "Miami", "Portland", "Seattle"}
	states     = []string{"TX", "MA", "IL", "CO", "FL", "OR", "WA"}
	categories = []string{"apparel", "electronics", "home", "outdoor", "toys"}
	sizes      = []string{"S", "M", "L", "XL"}
	diagnoses  = []string{"hypertension", "type 2 diabetes", "asthma", "migraine", "hyperlipidemia", "anxiety"}
	procedures = []string{"blood panel", "ecg", "spirometry", "x-ray", "mri"}
	medicines  = []string{"lisinopril", "metformin", "albuterol", "sumatriptan", "atorvastatin"}
	payments   = []string{"card", "paypal", "bank_transfer"}

	orderStatuses = []domain.OrderStatus{
		domain.OrderStatusPending,
		domain.OrderStatusProcessing,
		domain.OrderStatusShipped,
		domain.OrderStatusDelivered,
		domain.OrderStatusCancelled,
	}
	transactionTypes = []domain.TransactionType{
		domain.TransactionTypeDeposit,
		domain.TransactionTypeWithdrawal,
		domain.TransactionTypeTransfer,
	}
)

// Generator produces synthetic records. It is safe for concurrent use.
type Generator struct {
	mu      sync.Mutex
	rng     *rand.Rand
	entropy *rand.ChaCha8
	base    time.Time
}

// New creates a deterministic generator; the same seed yields the same records
func New(seed uint64) *Generator {
	var key [32]byte
	for i := range 8 {
		key[i] = byte(seed >> (8 * i))
	}
	entropy := rand.NewChaCha8(key)
	return &Generator{
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		entropy: entropy,
		base:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// NewRandom creates a generator seeded from the clock
func NewRandom() *Generator {
	return New(uint64(time.Now().UnixNano()))
}

func (g *Generator) id() string {
	id, err := uuid.NewRandomFromReader(g.entropy)
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func (g *Generator) pick(values []string) string {
	return values[g.rng.IntN(len(values))]
}

func (g *Generator) money(lo, hi float64) float64 {
	cents := int64(lo*100) + g.rng.Int64N(int64((hi-lo)*100)+1)
	return float64(cents) / 100
}

func (g *Generator) after(span time.Duration) time.Time {
	return g.base.Add(time.Duration(g.rng.Int64N(int64(span)))).Truncate(time.Second)
}

func (g *Generator) address() domain.Address {
	i := g.rng.IntN(len(cities))
	return domain.Address{
		Street:     fmt.Sprintf("%d %s St", 1+g.rng.IntN(9999), g.pick(lastNames)),
		City:       cities[i],
		State:      states[i],
		PostalCode: fmt.Sprintf("%05d", g.rng.IntN(100000)),
		Country:    "US",
	}
}

// Transactions returns n valid banking transactions
func (g *Generator) Transactions(n int) []domain.BankingTransaction {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]domain.BankingTransaction, n)
	for i := range out {
		status := domain.TransactionStatusCompleted
		if g.rng.IntN(20) == 0 {
			status = domain.TransactionStatusPending
		}
		out[i] = domain.BankingTransaction{
			ID:        g.id(),
			Timestamp: g.after(365 * 24 * time.Hour),
			Amount:    g.money(1, 5000),
			AccountID: fmt.Sprintf("ACC-%08d", g.rng.IntN(100_000_000)),
			Type:      transactionTypes[g.rng.IntN(len(transactionTypes))],
			Status:    status,
			Metadata:  map[string]interface{}{"channel": g.pick([]string{"web", "branch", "mobile"})},
		}
	}
	return out
}

// Products returns n valid products, most of them with variants
func (g *Generator) Products(n int) []domain.Product {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]domain.Product, n)
	for i := range out {
		p := domain.Product{
			ID:        fmt.Sprintf("SKU-%06d", i+1),
			Name:      fmt.Sprintf("%s %s", g.pick(categories), g.pick(lastNames)),
			Price:     g.money(2, 400),
			Inventory: g.rng.IntN(200),
			Category:  g.pick(categories),
		}
		for v := range g.rng.IntN(4) {
			p.Variants = append(p.Variants, domain.ProductVariant{
				ID:         fmt.Sprintf("%s-%s", p.ID, sizes[v]),
				Attributes: map[string]string{"size": sizes[v]},
				Inventory:  g.rng.IntN(60),
			})
		}
		out[i] = p
	}
	return out
}

// Orders returns n orders whose totals match their line items
func (g *Generator) Orders(n int) []domain.Order {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]domain.Order, n)
	for i := range out {
		o := domain.Order{
			ID:            fmt.Sprintf("ORD-%07d", i+1),
			CustomerID:    fmt.Sprintf("CUST-%05d", g.rng.IntN(5000)),
			OrderDate:     g.after(180 * 24 * time.Hour),
			Status:        orderStatuses[g.rng.IntN(len(orderStatuses))],
			PaymentMethod: g.pick(payments),
		}
		for range 1 + g.rng.IntN(4) {
			qty := 1 + g.rng.IntN(3)
			price := g.money(2, 150)
			item := domain.OrderItem{
				ProductID: fmt.Sprintf("SKU-%06d", 1+g.rng.IntN(10000)),
				Quantity:  qty,
				UnitPrice: price,
				LineTotal: price * float64(qty),
			}
			o.Items = append(o.Items, item)
			o.Total += item.LineTotal
		}
		o.ShippingAddress = g.address()
		o.BillingAddress = o.ShippingAddress
		out[i] = o
	}
	return out
}

// MedicalRecords returns n valid records. Roughly one in four carries notes
// with identifiers that redaction is expected to remove.
func (g *Generator) MedicalRecords(n int) []domain.MedicalRecord {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]domain.MedicalRecord, n)
	for i := range out {
		r := domain.MedicalRecord{
			ID:         g.id(),
			PatientID:  fmt.Sprintf("PT-%06d", g.rng.IntN(50000)),
			Date:       g.after(365 * 24 * time.Hour),
			ProviderID: fmt.Sprintf("PRV-%04d", g.rng.IntN(300)),
			Diagnoses:  []string{g.pick(diagnoses)},
			Procedures: []string{g.pick(procedures)},
			Notes:      "follow-up in 3 months",
		}
		if g.rng.IntN(2) == 0 {
			start := r.Date
			r.Medications = []domain.MedicationPrescription{{
				Name:      g.pick(medicines),
				Dosage:    fmt.Sprintf("%dmg", 5*(1+g.rng.IntN(20))),
				Frequency: "daily",
				StartDate: start,
			}}
		}
		if g.rng.IntN(4) == 0 {
			r.Notes = fmt.Sprintf("Discussed results with %s %s, callback %03d-555-%04d",
				g.pick(firstNames), g.pick(lastNames), 200+g.rng.IntN(800), g.rng.IntN(10000))
		}
		out[i] = r
	}
	return out
}

// Patients returns n patients with full identifying details
func (g *Generator) Patients(n int) []domain.PatientData {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]domain.PatientData, n)
	for i := range out {
		first, last := g.pick(firstNames), g.pick(lastNames)
		p := domain.PatientData{
			ID:                  g.id(),
			MedicalRecordNumber: fmt.Sprintf("MRN-%08d", g.rng.IntN(100_000_000)),
			FirstName:           first,
			LastName:            last,
			DateOfBirth:         time.Date(1940+g.rng.IntN(65), time.Month(1+g.rng.IntN(12)), 1+g.rng.IntN(28), 0, 0, 0, 0, time.UTC),
			Gender:              g.pick([]string{"female", "male", "other"}),
			Contact: domain.ContactInfo{
				Phone:   fmt.Sprintf("%03d-555-%04d", 200+g.rng.IntN(800), g.rng.IntN(10000)),
				Email:   fmt.Sprintf("patient%d@example.com", g.rng.IntN(1_000_000)),
				Address: g.address(),
			},
		}
		if g.rng.IntN(3) > 0 {
			p.Insurance = &domain.InsuranceInfo{
				Provider:     g.pick([]string{"Acme Health", "Blue Harbor", "Summit Care"}),
				PolicyNumber: fmt.Sprintf("POL-%09d", g.rng.IntN(1_000_000_000)),
			}
		}
		out[i] = p
	}
	return out
}
