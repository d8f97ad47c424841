package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"furniture-inventory/internal/models"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultAllocRetries    = 3
	DefaultBulkConcurrency = 4

	backfillPageSize = 200
)

type ProvisionerOptions struct {
	// AllocRetries is the number of insert attempts made before a code
	// conflict is reported as ErrTransientConflict.
	AllocRetries int
	// BulkConcurrency bounds parallel renders in bulk regeneration.
	BulkConcurrency int
}

// Provisioner creates products with an allocated code and a rendered barcode,
// and regenerates barcodes for existing products.
type Provisioner struct {
	store     ProductStore
	allocator *Allocator
	renderer  Renderer
	opts      ProvisionerOptions
	logger    *zap.Logger
}

func NewProvisioner(store ProductStore, allocator *Allocator, renderer Renderer, opts ProvisionerOptions, logger *zap.Logger) *Provisioner {
	if opts.AllocRetries <= 0 {
		opts.AllocRetries = DefaultAllocRetries
	}
	if opts.BulkConcurrency <= 0 {
		opts.BulkConcurrency = DefaultBulkConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provisioner{
		store:     store,
		allocator: allocator,
		renderer:  renderer,
		opts:      opts,
		logger:    logger,
	}
}

// Provisioned is the outcome of a successful create. BarcodeGenerated is
// false when the product was stored but its image could not be rendered.
type Provisioned struct {
	Product          *models.Product
	BarcodeGenerated bool
	CodeFallback     bool
	RenderErr        error
}

// BarcodeInfo describes the barcode of an existing product after a render.
type BarcodeInfo struct {
	ProductID    string `json:"productId"`
	ProductCode  string `json:"productCode"`
	Barcode      string `json:"barcode"`
	BarcodeImage string `json:"barcodeImage"`
	Generated    bool   `json:"generated"`
}

func (p *Provisioner) Provision(ctx context.Context, req models.ProductDraft) (*Provisioned, error) {
	draft, err := prepareDraft(req)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= p.opts.AllocRetries; attempt++ {
		alloc := p.allocator.Allocate(ctx)
		rendered := p.renderer.Render(alloc.Code, draft.Name)

		product := draft
		product.ProductCode = alloc.Code
		product.Barcode = alloc.Code
		product.BarcodeImage = rendered.ImagePath

		err := p.store.Insert(ctx, &product)
		if err == nil {
			out := &Provisioned{
				Product:          &product,
				BarcodeGenerated: rendered.Success,
				CodeFallback:     alloc.Fallback,
			}
			if !rendered.Success {
				out.RenderErr = fmt.Errorf("%w: %v", ErrRenderFailure, rendered.Err)
				p.logger.Warn("product stored without barcode image",
					zap.String("code", alloc.Code), zap.Error(rendered.Err))
			}
			return out, nil
		}

		var dup DuplicateError
		if !errors.As(err, &dup) || !isCodeField(dup.Field) {
			return nil, err
		}

		lastErr = err
		p.logger.Info("product code taken concurrently, retrying",
			zap.String("code", alloc.Code), zap.Int("attempt", attempt))
		if rendered.Success {
			p.restoreWinnerImage(ctx, alloc.Code)
		}
	}

	return nil, fmt.Errorf("%w: %v", ErrTransientConflict, lastErr)
}

// restoreWinnerImage re-renders code for the product that actually owns it,
// since the losing attempt overwrote the file with its own caption.
func (p *Provisioner) restoreWinnerImage(ctx context.Context, code string) {
	winner, err := p.store.FindByCode(ctx, code)
	if err != nil {
		p.logger.Warn("could not load product owning code", zap.String("code", code), zap.Error(err))
		return
	}
	if res := p.renderer.Render(code, winner.Name); !res.Success {
		p.logger.Warn("could not restore barcode image", zap.String("code", code), zap.Error(res.Err))
	}
}

// Reprovision renders the barcode of an existing product again and stores
// the result on it. The product code is never changed.
func (p *Provisioner) Reprovision(ctx context.Context, id string) (*BarcodeInfo, error) {
	product, err := p.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return p.reprovisionProduct(ctx, product)
}

// ReprovisionByCode is Reprovision keyed by product code.
func (p *Provisioner) ReprovisionByCode(ctx context.Context, code string) (*BarcodeInfo, error) {
	product, err := p.store.FindByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, err
	}
	return p.reprovisionProduct(ctx, product)
}

func (p *Provisioner) reprovisionProduct(ctx context.Context, product *models.Product) (*BarcodeInfo, error) {
	code := product.ProductCode
	if code == "" {
		return nil, validationError("product %s has no product code", product.ID.Hex())
	}

	rendered := p.renderer.Render(code, product.Name)
	if !rendered.Success {
		p.logger.Warn("barcode regeneration failed", zap.String("code", code), zap.Error(rendered.Err))
	}

	id := product.ID.Hex()
	if _, err := p.store.SetBarcode(ctx, id, code, rendered.ImagePath); err != nil {
		return nil, err
	}

	return &BarcodeInfo{
		ProductID:    id,
		ProductCode:  code,
		Barcode:      code,
		BarcodeImage: rendered.ImagePath,
		Generated:    rendered.Success,
	}, nil
}

type BulkBarcodeResult struct {
	ProductID string
	Info      *BarcodeInfo
	Err       error
}

// BulkReprovision regenerates barcodes for ids in parallel. Results are in
// input order and every item succeeds or fails on its own.
func (p *Provisioner) BulkReprovision(ctx context.Context, ids []string) []BulkBarcodeResult {
	results := make([]BulkBarcodeResult, len(ids))

	var g errgroup.Group
	g.SetLimit(p.opts.BulkConcurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			results[i].ProductID = id
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			results[i].Info, results[i].Err = p.Reprovision(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

type BulkCreateResult struct {
	Index  int
	Result *Provisioned
	Err    error
}

// BulkProvision creates drafts one after another; each one is independent.
func (p *Provisioner) BulkProvision(ctx context.Context, drafts []models.ProductDraft) []BulkCreateResult {
	results := make([]BulkCreateResult, 0, len(drafts))
	for i, draft := range drafts {
		if err := ctx.Err(); err != nil {
			results = append(results, BulkCreateResult{Index: i, Err: err})
			continue
		}
		out, err := p.Provision(ctx, draft)
		results = append(results, BulkCreateResult{Index: i, Result: out, Err: err})
	}
	return results
}

type BackfillReport struct {
	Checked  int
	Rendered int
	Failed   int
}

// BackfillMissing regenerates barcodes for products whose image file is
// missing or whose barcode field was never set.
func (p *Provisioner) BackfillMissing(ctx context.Context) (BackfillReport, error) {
	var report BackfillReport

	for page := int64(1); ; page++ {
		products, total, err := p.store.List(ctx, models.ProductFilter{Page: page, Limit: backfillPageSize})
		if err != nil {
			return report, err
		}

		for i := range products {
			product := &products[i]
			if product.ProductCode == "" {
				continue
			}
			report.Checked++
			if product.Barcode == product.ProductCode && p.renderer.Exists(product.ProductCode) {
				continue
			}

			info, err := p.reprovisionProduct(ctx, product)
			if err != nil || !info.Generated {
				report.Failed++
				continue
			}
			report.Rendered++
		}

		if len(products) < backfillPageSize || page*backfillPageSize >= total {
			break
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}
	}

	return report, nil
}

func prepareDraft(req models.ProductDraft) (models.Product, error) {
	draft := models.Product{
		Name:        strings.TrimSpace(req.Name),
		Category:    strings.TrimSpace(req.Category),
		Material:    strings.TrimSpace(req.Material),
		Color:       strings.TrimSpace(req.Color),
		Stock:       req.Stock,
		MinStock:    models.DefaultMinStock,
		Price:       req.Price,
		CostPrice:   req.CostPrice,
		Location:    strings.TrimSpace(req.Location),
		Description: strings.TrimSpace(req.Description),
		Status:      req.Status,
	}
	if req.MinStock != nil {
		draft.MinStock = *req.MinStock
	}

	switch {
	case draft.Name == "":
		return draft, validationError("name is required")
	case draft.Category == "":
		return draft, validationError("category is required")
	case draft.Stock < 0:
		return draft, validationError("stock must not be negative")
	case draft.Price < 0:
		return draft, validationError("price must not be negative")
	case draft.CostPrice < 0:
		return draft, validationError("costPrice must not be negative")
	case draft.MinStock < 0:
		return draft, validationError("minStock must not be negative")
	}

	switch draft.Status {
	case "":
		draft.Status = models.ProductStatusActive
	case models.ProductStatusActive, models.ProductStatusInactive:
	default:
		return draft, validationError("status must be %q or %q", models.ProductStatusActive, models.ProductStatusInactive)
	}

	return draft, nil
}

func isCodeField(field string) bool {
	return field == "" || field == "productCode" || field == "barcode"
}
