package service

import (
	"context"
	"errors"
	"strings"

	"go-parts-ledger/internal/model"
	"go-parts-ledger/internal/repository"
	"go-parts-ledger/pkg/logger"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ProductView is a product with its stock flag resolved.
type ProductView struct {
	model.Product
	CategoryRef model.CategoryRef `json:"category_ref"`
	LowStock    bool              `json:"low_stock"`
}

func newProductView(p model.Product) ProductView {
	return ProductView{Product: p, CategoryRef: p.CategoryRef(), LowStock: p.IsLowStock()}
}

type InventoryService interface {
	CreateCategory(ctx context.Context, req *CreateCategoryRequest) (*model.Category, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
	CreateProduct(ctx context.Context, req *CreateProductRequest) (*ProductView, error)
	ListProducts(ctx context.Context) ([]ProductView, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*ProductView, error)
	// CreateBatch receives a purchase into stock. The purchase date must fall
	// in the open period or later.
	CreateBatch(ctx context.Context, productID uuid.UUID, req *CreateBatchRequest) (*model.Batch, error)
	ListBatches(ctx context.Context, productID uuid.UUID) ([]model.Batch, error)
}

type inventoryService struct {
	store repository.Store
	hub   EventPublisher
	log   *logrus.Logger
}

func NewInventoryService(store repository.Store, hub EventPublisher, log *logrus.Logger) InventoryService {
	return &inventoryService{store: store, hub: hub, log: log}
}

func (s *inventoryService) CreateCategory(ctx context.Context, req *CreateCategoryRequest) (*model.Category, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validate(req); err != nil {
		return nil, err
	}

	category := &model.Category{Name: req.Name}
	if err := s.store.Categories().Create(ctx, category); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateCategory
		}
		return nil, classify(err)
	}
	return category, nil
}

func (s *inventoryService) ListCategories(ctx context.Context) ([]model.Category, error) {
	categories, err := s.store.Categories().FindAll(ctx)
	return categories, classify(err)
}

func (s *inventoryService) CreateProduct(ctx context.Context, req *CreateProductRequest) (*ProductView, error) {
	req.SKU = strings.TrimSpace(req.SKU)
	req.Name = strings.TrimSpace(req.Name)
	if req.SellingPrice.IsNegative() {
		return nil, ErrInvalidPrice
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	if req.CategoryID != nil {
		if _, err := s.store.Categories().FindByID(ctx, *req.CategoryID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrCategoryNotFound
			}
			return nil, classify(err)
		}
	}

	product := &model.Product{
		SKU:           req.SKU,
		Name:          req.Name,
		CategoryID:    req.CategoryID,
		SellingPrice:  req.SellingPrice.Round(2),
		MinStockLevel: req.MinStockLevel,
	}
	if err := s.store.Products().Create(ctx, product); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateSKU
		}
		logger.LogError(s.log, "inventory", "CreateProduct", "create product", req.SKU, err)
		return nil, classify(err)
	}

	stored, err := s.store.Products().FindByID(ctx, product.ID)
	if err != nil {
		return nil, classify(err)
	}
	view := newProductView(*stored)

	publish(s.hub, EventProductCreated, map[string]interface{}{
		"id":   view.ID,
		"sku":  view.SKU,
		"name": view.Name,
	})
	return &view, nil
}

func (s *inventoryService) ListProducts(ctx context.Context) ([]ProductView, error) {
	products, err := s.store.Products().FindAll(ctx)
	if err != nil {
		return nil, classify(err)
	}
	views := make([]ProductView, 0, len(products))
	for _, p := range products {
		views = append(views, newProductView(p))
	}
	return views, nil
}

func (s *inventoryService) GetProduct(ctx context.Context, id uuid.UUID) (*ProductView, error) {
	product, err := s.store.Products().FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrProductNotFound
	} else if err != nil {
		return nil, classify(err)
	}
	view := newProductView(*product)
	return &view, nil
}

func (s *inventoryService) CreateBatch(ctx context.Context, productID uuid.UUID, req *CreateBatchRequest) (*model.Batch, error) {
	if req.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if req.PurchasePrice.IsNegative() {
		return nil, ErrInvalidPrice
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	purchaseDate := req.PurchaseDate.UTC()
	if req.PurchaseDate.IsZero() {
		purchaseDate = utcNow()
	}

	batch := &model.Batch{
		ProductID:       productID,
		PurchaseDate:    purchaseDate,
		PurchasePrice:   req.PurchasePrice.Round(2),
		InitialQuantity: req.Quantity,
		CurrentQuantity: req.Quantity,
		Status:          model.BatchActive,
		Supplier:        strings.TrimSpace(req.Supplier),
		InvoiceNumber:   strings.TrimSpace(req.InvoiceNumber),
	}

	var totalStock int
	err := s.store.Transaction(ctx, func(tx repository.Repositories) error {
		if _, err := lockOpenLedger(ctx, tx, purchaseDate); err != nil {
			return err
		}

		if _, err := tx.Products().LockByID(ctx, productID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrProductNotFound
			}
			return err
		}

		if err := tx.Batches().Create(ctx, batch); err != nil {
			return err
		}

		var err error
		totalStock, err = syncTotalStock(ctx, tx, productID)
		return err
	})
	if err != nil {
		if !IsClientError(err) {
			logger.LogError(s.log, "inventory", "CreateBatch", "create batch", productID, err)
		}
		return nil, classify(err)
	}

	s.log.WithFields(logrus.Fields{
		"product_id":  productID,
		"batch_id":    batch.ID,
		"quantity":    batch.InitialQuantity,
		"total_stock": totalStock,
	}).Info("batch received")

	publish(s.hub, EventBatchCreated, map[string]interface{}{
		"batch_id":       batch.ID,
		"product_id":     productID,
		"quantity":       batch.InitialQuantity,
		"purchase_price": batch.PurchasePrice,
		"purchase_date":  batch.PurchaseDate,
		"total_stock":    totalStock,
	})
	return batch, nil
}

func (s *inventoryService) ListBatches(ctx context.Context, productID uuid.UUID) ([]model.Batch, error) {
	if _, err := s.store.Products().FindByID(ctx, productID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, classify(err)
	}
	batches, err := s.store.Batches().ListByProduct(ctx, productID)
	return batches, classify(err)
}
