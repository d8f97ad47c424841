// Package inventorytest provides an in-memory product and movement store
// with the same atomicity guarantees as the Mongo repository.
package inventorytest

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"furniture-inventory/internal/inventory"
	"furniture-inventory/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var sequentialCode = regexp.MustCompile(`^FUR-\d+$`)

type Store struct {
	mu        sync.Mutex
	products  []*models.Product
	movements []models.StockMovement
	now       func() time.Time

	// Fail* inject errors into the matching store calls when set.
	FailLatest   error
	FailExists   error
	FailMovement error
}

var (
	_ inventory.ProductStore  = (*Store)(nil)
	_ inventory.MovementStore = (*Store)(nil)
)

func NewStore() *Store {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var tick int64
	return &Store{
		now: func() time.Time {
			tick++
			return base.Add(time.Duration(tick) * time.Millisecond)
		},
	}
}

// Seed inserts products as-is, bypassing code allocation.
func (s *Store) Seed(products ...models.Product) []models.Product {
	out := make([]models.Product, 0, len(products))
	for i := range products {
		p := products[i]
		if err := s.Insert(context.Background(), &p); err != nil {
			panic(err)
		}
		out = append(out, p)
	}
	return out
}

func (s *Store) Movements() []models.StockMovement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.StockMovement(nil), s.movements...)
}

func (s *Store) LatestSequentialCode(_ context.Context) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailLatest != nil {
		return "", false, s.FailLatest
	}
	for i := len(s.products) - 1; i >= 0; i-- {
		if sequentialCode.MatchString(s.products[i].ProductCode) {
			return s.products[i].ProductCode, true, nil
		}
	}
	return "", false, nil
}

func (s *Store) CodeExists(_ context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailExists != nil {
		return false, s.FailExists
	}
	return s.byCode(code) != nil, nil
}

func (s *Store) Insert(_ context.Context, product *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.byCode(product.ProductCode) != nil {
		return inventory.DuplicateError{Field: "productCode"}
	}
	if product.Barcode != "" && s.byBarcode(product.Barcode) != nil {
		return inventory.DuplicateError{Field: "barcode"}
	}

	now := s.now()
	product.ID = primitive.NewObjectID()
	if product.Status == "" {
		product.Status = models.ProductStatusActive
	}
	product.CreatedAt = now
	product.UpdatedAt = now

	stored := *product
	s.products = append(s.products, &stored)
	return nil
}

func (s *Store) FindByID(_ context.Context, id string) (*models.Product, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, inventory.InvalidID(id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.byID(oid)
	if p == nil {
		return nil, inventory.ErrNotFound
	}
	return clone(p), nil
}

func (s *Store) FindByCode(_ context.Context, code string) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.byCode(code)
	if p == nil {
		return nil, inventory.ErrNotFound
	}
	return clone(p), nil
}

func (s *Store) FindByBarcode(_ context.Context, barcode string) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.byBarcode(barcode)
	if p == nil {
		return nil, inventory.ErrNotFound
	}
	return clone(p), nil
}

func (s *Store) List(_ context.Context, filter models.ProductFilter) ([]models.Product, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var search *regexp.Regexp
	if filter.Search != "" {
		search = regexp.MustCompile("(?i)" + regexp.QuoteMeta(filter.Search))
	}

	matched := make([]models.Product, 0, len(s.products))
	for _, p := range s.products {
		if filter.Category != "" && !strings.EqualFold(p.Category, filter.Category) {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.LowStock && !p.IsLowStock() {
			continue
		}
		if search != nil && !matchesAny(search, p.Name, p.ProductCode, p.Category, p.Material, p.Color, p.Description) {
			continue
		}
		matched = append(matched, *clone(p))
	}

	if filter.LowStock {
		sort.SliceStable(matched, func(i, j int) bool { return matched[i].Stock < matched[j].Stock })
	} else {
		sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	}

	total := int64(len(matched))
	if filter.Limit > 0 {
		page := max(filter.Page, 1)
		start := min((page-1)*filter.Limit, total)
		end := min(start+filter.Limit, total)
		matched = matched[start:end]
	}
	return matched, total, nil
}

func (s *Store) Update(_ context.Context, id string, changes models.ProductChanges) (*models.Product, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, inventory.InvalidID(id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.byID(oid)
	if p == nil {
		return nil, inventory.ErrNotFound
	}
	applyChanges(p, changes)
	p.UpdatedAt = s.now()
	return clone(p), nil
}

func (s *Store) Delete(_ context.Context, id string) (*models.Product, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, inventory.InvalidID(id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.products {
		if p.ID == oid {
			s.products = append(s.products[:i], s.products[i+1:]...)
			return clone(p), nil
		}
	}
	return nil, inventory.ErrNotFound
}

func (s *Store) SetBarcode(_ context.Context, id, barcode, image string) (*models.Product, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, inventory.InvalidID(id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.byID(oid)
	if p == nil {
		return nil, inventory.ErrNotFound
	}
	if other := s.byBarcode(barcode); other != nil && other != p {
		return nil, inventory.DuplicateError{Field: "barcode"}
	}
	p.Barcode = barcode
	p.BarcodeImage = image
	p.UpdatedAt = s.now()
	return clone(p), nil
}

func (s *Store) AdjustStock(_ context.Context, barcode string, delta int) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.byBarcode(barcode)
	if p == nil || p.Stock+delta < 0 {
		return nil, inventory.ErrNotFound
	}
	p.Stock += delta
	p.UpdatedAt = s.now()
	return clone(p), nil
}

func (s *Store) InsertMovement(_ context.Context, movement *models.StockMovement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailMovement != nil {
		return s.FailMovement
	}
	movement.ID = primitive.NewObjectID()
	s.movements = append(s.movements, *movement)
	return nil
}

func (s *Store) ListMovements(_ context.Context, barcode string, limit int64) ([]models.StockMovement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.StockMovement, 0)
	for i := len(s.movements) - 1; i >= 0; i-- {
		m := s.movements[i]
		if barcode != "" && m.Barcode != barcode {
			continue
		}
		out = append(out, m)
		if limit > 0 && int64(len(out)) >= limit {
			break
		}
	}
	return out, nil
}

func (s *Store) byID(id primitive.ObjectID) *models.Product {
	for _, p := range s.products {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (s *Store) byCode(code string) *models.Product {
	if code == "" {
		return nil
	}
	for _, p := range s.products {
		if p.ProductCode == code {
			return p
		}
	}
	return nil
}

func (s *Store) byBarcode(barcode string) *models.Product {
	if barcode == "" {
		return nil
	}
	for _, p := range s.products {
		if p.Barcode == barcode {
			return p
		}
	}
	return nil
}

func applyChanges(p *models.Product, c models.ProductChanges) {
	setString(&p.Name, c.Name)
	setString(&p.Category, c.Category)
	setString(&p.Material, c.Material)
	setString(&p.Color, c.Color)
	setString(&p.Location, c.Location)
	setString(&p.Description, c.Description)
	setString(&p.Status, c.Status)
	if c.Stock != nil {
		p.Stock = *c.Stock
	}
	if c.MinStock != nil {
		p.MinStock = *c.MinStock
	}
	if c.Price != nil {
		p.Price = *c.Price
	}
	if c.CostPrice != nil {
		p.CostPrice = *c.CostPrice
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func matchesAny(re *regexp.Regexp, values ...string) bool {
	for _, v := range values {
		if re.MatchString(v) {
			return true
		}
	}
	return false
}

func clone(p *models.Product) *models.Product {
	c := *p
	c.LowStock = c.IsLowStock()
	return &c
}
