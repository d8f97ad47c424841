package inventory_test

import (
	"context"
	"errors"
	"testing"

	"furniture-inventory/internal/barcode"
	"furniture-inventory/internal/inventory"
	"furniture-inventory/internal/inventory/inventorytest"
	"furniture-inventory/internal/models"
	"furniture-inventory/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/mock/gomock"
)

type provisionFixture struct {
	store    *inventorytest.Store
	renderer *barcode.Renderer
	prov     *inventory.Provisioner
}

func newProvisionFixture(t *testing.T) provisionFixture {
	t.Helper()
	disk, err := storage.NewDisk(t.TempDir())
	require.NoError(t, err)

	store := inventorytest.NewStore()
	renderer := barcode.NewRenderer(disk, nil)
	prov := inventory.NewProvisioner(store, inventory.NewAllocator(store, nil), renderer, inventory.ProvisionerOptions{}, nil)
	return provisionFixture{store: store, renderer: renderer, prov: prov}
}

func TestProvisionAssignsCodeAndImage(t *testing.T) {
	f := newProvisionFixture(t)

	out, err := f.prov.Provision(context.Background(), models.ProductDraft{Name: "Oak Chair", Category: "Chair", Stock: 4, Price: 120})
	require.NoError(t, err)

	assert.True(t, out.BarcodeGenerated)
	assert.False(t, out.CodeFallback)
	assert.Equal(t, "FUR-001", out.Product.ProductCode)
	assert.Equal(t, "FUR-001", out.Product.Barcode)
	assert.Equal(t, "/uploads/barcodes/FUR-001.png", out.Product.BarcodeImage)
	assert.Equal(t, models.ProductStatusActive, out.Product.Status)
	assert.True(t, f.renderer.Exists("FUR-001"))

	stored, err := f.store.FindByCode(context.Background(), "FUR-001")
	require.NoError(t, err)
	assert.Equal(t, "Oak Chair", stored.Name)
}

func TestProvisionDefaultsMinStock(t *testing.T) {
	f := newProvisionFixture(t)
	ctx := context.Background()

	out, err := f.prov.Provision(ctx, models.ProductDraft{Name: "Bed", Category: "Bed", Stock: 9})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultMinStock, out.Product.MinStock)

	zero := 0
	out, err = f.prov.Provision(ctx, models.ProductDraft{Name: "Stool", Category: "Chair", MinStock: &zero})
	require.NoError(t, err)
	assert.Equal(t, 0, out.Product.MinStock)

	stored, err := f.store.FindByCode(ctx, out.Product.ProductCode)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.MinStock)
}

func TestProvisionTrimsDraft(t *testing.T) {
	f := newProvisionFixture(t)

	out, err := f.prov.Provision(context.Background(), models.ProductDraft{Name: "  Bed ", Category: " Bed", Material: " oak "})
	require.NoError(t, err)
	assert.Equal(t, "Bed", out.Product.Name)
	assert.Equal(t, "oak", out.Product.Material)
	assert.Equal(t, "FUR-001", out.Product.ProductCode)
}

func TestProvisionRejectsInvalidDraft(t *testing.T) {
	f := newProvisionFixture(t)
	ctx := context.Background()

	cases := map[string]models.ProductDraft{
		"missing name":     {Category: "Sofa"},
		"missing category": {Name: "Sofa"},
		"negative stock":   {Name: "Sofa", Category: "Sofa", Stock: -1},
		"negative price":   {Name: "Sofa", Category: "Sofa", Price: -5},
		"unknown status":   {Name: "Sofa", Category: "Sofa", Status: "archived"},
		"blank name":       {Name: "   ", Category: "Sofa"},
	}
	for name, draft := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.prov.Provision(ctx, draft)
			assert.ErrorIs(t, err, inventory.ErrValidation)
		})
	}
}

func TestProvisionSucceedsWhenRenderFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := inventorytest.NewStore()
	renderer := NewMockRenderer(ctrl)
	renderer.EXPECT().Render("FUR-001", "Wardrobe").Return(barcode.Result{
		Code:      "FUR-001",
		ImagePath: "/uploads/barcodes/FUR-001.png",
		Err:       errors.New("read-only file system"),
	})

	prov := inventory.NewProvisioner(store, inventory.NewAllocator(store, nil), renderer, inventory.ProvisionerOptions{}, nil)
	out, err := prov.Provision(context.Background(), models.ProductDraft{Name: "Wardrobe", Category: "Wardrobe"})
	require.NoError(t, err)

	assert.False(t, out.BarcodeGenerated)
	assert.ErrorIs(t, out.RenderErr, inventory.ErrRenderFailure)
	assert.Equal(t, "FUR-001", out.Product.Barcode)
	assert.Equal(t, "/uploads/barcodes/FUR-001.png", out.Product.BarcodeImage)
}

func TestProvisionRetriesAfterLosingCodeRace(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := NewMockProductStore(ctrl)
	renderer := NewMockRenderer(ctrl)
	ok := func(code string) barcode.Result {
		return barcode.Result{Code: code, ImagePath: "/uploads/barcodes/" + code + ".png", Success: true}
	}

	gomock.InOrder(
		store.EXPECT().LatestSequentialCode(gomock.Any()).Return("FUR-004", true, nil),
		store.EXPECT().CodeExists(gomock.Any(), "FUR-005").Return(false, nil),
		renderer.EXPECT().Render("FUR-005", "Table").Return(ok("FUR-005")),
		store.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(inventory.DuplicateError{Field: "productCode"}),
		store.EXPECT().FindByCode(gomock.Any(), "FUR-005").Return(&models.Product{ProductCode: "FUR-005", Name: "Winner"}, nil),
		renderer.EXPECT().Render("FUR-005", "Winner").Return(ok("FUR-005")),
		store.EXPECT().LatestSequentialCode(gomock.Any()).Return("FUR-005", true, nil),
		store.EXPECT().CodeExists(gomock.Any(), "FUR-006").Return(false, nil),
		renderer.EXPECT().Render("FUR-006", "Table").Return(ok("FUR-006")),
		store.EXPECT().Insert(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, p *models.Product) error {
			p.ID = primitive.NewObjectID()
			return nil
		}),
	)

	prov := inventory.NewProvisioner(store, inventory.NewAllocator(store, nil), renderer, inventory.ProvisionerOptions{}, nil)
	out, err := prov.Provision(context.Background(), models.ProductDraft{Name: "Table", Category: "Table"})
	require.NoError(t, err)
	assert.Equal(t, "FUR-006", out.Product.ProductCode)
	assert.True(t, out.BarcodeGenerated)
}

func TestLostCodeRaceLeavesWinnerImage(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := NewMockProductStore(ctrl)
	disk, err := storage.NewDisk(t.TempDir())
	require.NoError(t, err)
	renderer := barcode.NewRenderer(disk, nil)

	gomock.InOrder(
		store.EXPECT().LatestSequentialCode(gomock.Any()).Return("FUR-004", true, nil),
		store.EXPECT().CodeExists(gomock.Any(), "FUR-005").Return(false, nil),
		store.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(inventory.DuplicateError{Field: "productCode"}),
		store.EXPECT().FindByCode(gomock.Any(), "FUR-005").Return(&models.Product{ProductCode: "FUR-005", Name: "Winner Sofa"}, nil),
		store.EXPECT().LatestSequentialCode(gomock.Any()).Return("FUR-005", true, nil),
		store.EXPECT().CodeExists(gomock.Any(), "FUR-006").Return(false, nil),
		store.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil),
	)

	prov := inventory.NewProvisioner(store, inventory.NewAllocator(store, nil), renderer, inventory.ProvisionerOptions{}, nil)
	out, err := prov.Provision(context.Background(), models.ProductDraft{Name: "Loser Table", Category: "Table"})
	require.NoError(t, err)
	require.Equal(t, "FUR-006", out.Product.ProductCode)

	contested, err := renderer.Load("FUR-005", "")
	require.NoError(t, err)
	winner, err := barcode.Encode("FUR-005", barcode.Caption("FUR-005", "Winner Sofa"))
	require.NoError(t, err)
	loser, err := barcode.Encode("FUR-005", barcode.Caption("FUR-005", "Loser Table"))
	require.NoError(t, err)
	assert.Equal(t, winner, contested)
	assert.NotEqual(t, loser, contested)

	own, err := renderer.Load("FUR-006", "")
	require.NoError(t, err)
	expected, err := barcode.Encode("FUR-006", barcode.Caption("FUR-006", "Loser Table"))
	require.NoError(t, err)
	assert.Equal(t, expected, own)
}

func TestProvisionGivesUpAfterRetries(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := NewMockProductStore(ctrl)
	renderer := NewMockRenderer(ctrl)

	store.EXPECT().LatestSequentialCode(gomock.Any()).Return("", false, nil).Times(2)
	store.EXPECT().CodeExists(gomock.Any(), "FUR-001").Return(false, nil).Times(2)
	renderer.EXPECT().Render("FUR-001", "Sofa").Return(barcode.Result{Code: "FUR-001", ImagePath: "/uploads/barcodes/FUR-001.png"}).Times(2)
	store.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(inventory.DuplicateError{Field: "barcode"}).Times(2)

	prov := inventory.NewProvisioner(store, inventory.NewAllocator(store, nil), renderer, inventory.ProvisionerOptions{AllocRetries: 2}, nil)
	_, err := prov.Provision(context.Background(), models.ProductDraft{Name: "Sofa", Category: "Sofa"})
	assert.ErrorIs(t, err, inventory.ErrTransientConflict)
}

func TestProvisionReturnsStoreErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := NewMockProductStore(ctrl)
	renderer := NewMockRenderer(ctrl)
	boom := errors.New("write concern timeout")

	store.EXPECT().LatestSequentialCode(gomock.Any()).Return("", false, nil)
	store.EXPECT().CodeExists(gomock.Any(), "FUR-001").Return(false, nil)
	renderer.EXPECT().Render("FUR-001", "Sofa").Return(barcode.Result{Code: "FUR-001", Success: true})
	store.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(boom)

	prov := inventory.NewProvisioner(store, inventory.NewAllocator(store, nil), renderer, inventory.ProvisionerOptions{}, nil)
	_, err := prov.Provision(context.Background(), models.ProductDraft{Name: "Sofa", Category: "Sofa"})
	assert.ErrorIs(t, err, boom)
}

func TestReprovisionKeepsCode(t *testing.T) {
	f := newProvisionFixture(t)
	seeded := f.store.Seed(models.Product{ProductCode: "FUR-005", Name: "Legacy Sofa", Category: "Sofa"})

	info, err := f.prov.Reprovision(context.Background(), seeded[0].ID.Hex())
	require.NoError(t, err)

	assert.Equal(t, &inventory.BarcodeInfo{
		ProductID:    seeded[0].ID.Hex(),
		ProductCode:  "FUR-005",
		Barcode:      "FUR-005",
		BarcodeImage: "/uploads/barcodes/FUR-005.png",
		Generated:    true,
	}, info)
	assert.True(t, f.renderer.Exists("FUR-005"))

	stored, err := f.store.FindByCode(context.Background(), "FUR-005")
	require.NoError(t, err)
	assert.Equal(t, "FUR-005", stored.Barcode)
}

func TestReprovisionErrors(t *testing.T) {
	f := newProvisionFixture(t)
	ctx := context.Background()
	seeded := f.store.Seed(models.Product{Name: "No code", Category: "Chair"})

	_, err := f.prov.Reprovision(ctx, seeded[0].ID.Hex())
	assert.ErrorIs(t, err, inventory.ErrValidation)

	_, err = f.prov.Reprovision(ctx, primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, inventory.ErrNotFound)

	_, err = f.prov.Reprovision(ctx, "not-an-id")
	assert.ErrorIs(t, err, inventory.ErrValidation)

	_, err = f.prov.ReprovisionByCode(ctx, "FUR-404")
	assert.ErrorIs(t, err, inventory.ErrNotFound)
}

func TestBulkReprovisionKeepsOrder(t *testing.T) {
	f := newProvisionFixture(t)
	seeded := f.store.Seed(
		models.Product{ProductCode: "FUR-001", Name: "A", Category: "Bed"},
		models.Product{ProductCode: "FUR-002", Name: "B", Category: "Bed"},
		models.Product{ProductCode: "FUR-003", Name: "C", Category: "Bed"},
	)
	missing := primitive.NewObjectID().Hex()
	ids := []string{seeded[2].ID.Hex(), missing, seeded[0].ID.Hex(), seeded[1].ID.Hex()}

	results := f.prov.BulkReprovision(context.Background(), ids)
	require.Len(t, results, 4)

	for i, res := range results {
		assert.Equal(t, ids[i], res.ProductID)
	}
	assert.Equal(t, "FUR-003", results[0].Info.ProductCode)
	assert.ErrorIs(t, results[1].Err, inventory.ErrNotFound)
	assert.Equal(t, "FUR-001", results[2].Info.ProductCode)
	assert.Equal(t, "FUR-002", results[3].Info.ProductCode)
}

func TestBulkProvisionIsPerItem(t *testing.T) {
	f := newProvisionFixture(t)

	results := f.prov.BulkProvision(context.Background(), []models.ProductDraft{
		{Name: "Sofa", Category: "Sofa"},
		{Name: "", Category: "Sofa"},
		{Name: "Chair", Category: "Chair"},
	})
	require.Len(t, results, 3)

	require.NoError(t, results[0].Err)
	assert.Equal(t, "FUR-001", results[0].Result.Product.ProductCode)
	assert.ErrorIs(t, results[1].Err, inventory.ErrValidation)
	assert.Equal(t, 1, results[1].Index)
	require.NoError(t, results[2].Err)
	assert.Equal(t, "FUR-002", results[2].Result.Product.ProductCode)
}

func TestBackfillMissingRendersOnlyMissingImages(t *testing.T) {
	f := newProvisionFixture(t)
	ctx := context.Background()

	_, err := f.prov.Provision(ctx, models.ProductDraft{Name: "Has image", Category: "Sofa"})
	require.NoError(t, err)
	f.store.Seed(
		models.Product{ProductCode: "FUR-050", Barcode: "FUR-050", Name: "Lost image", Category: "Bed"},
		models.Product{ProductCode: "FUR-051", Name: "Never had barcode", Category: "Bed"},
	)

	report, err := f.prov.BackfillMissing(ctx)
	require.NoError(t, err)
	assert.Equal(t, inventory.BackfillReport{Checked: 3, Rendered: 2}, report)
	assert.True(t, f.renderer.Exists("FUR-050"))
	assert.True(t, f.renderer.Exists("FUR-051"))

	second, err := f.prov.BackfillMissing(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Rendered)
}
