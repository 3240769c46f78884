package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-parts-ledger/internal/model"
	"go-parts-ledger/internal/repository"
	"go-parts-ledger/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const DefaultSaleRetries = 3

// SaleResult is the outcome of one recorded sale: one Sale row per batch
// touched, all sharing TransactionID.
type SaleResult struct {
	TransactionID  uuid.UUID       `json:"transaction_id"`
	ProductID      uuid.UUID       `json:"product_id"`
	Quantity       int             `json:"quantity"`
	Revenue        decimal.Decimal `json:"revenue"`
	Cost           decimal.Decimal `json:"cost"`
	Profit         decimal.Decimal `json:"profit"`
	ProfitMargin   decimal.Decimal `json:"profit_margin"`
	RemainingStock int             `json:"remaining_stock"`
	Sales          []model.Sale    `json:"sales"`
}

type SaleService interface {
	// RecordSale allocates quantity units FIFO across the product's batches
	// and writes the sale atomically. A lost race on a batch is retried from
	// scratch a bounded number of times.
	RecordSale(ctx context.Context, req *RecordSaleRequest) (*SaleResult, error)
	ListSales(ctx context.Context, from, to time.Time) ([]model.Sale, error)
	ListProductSales(ctx context.Context, productID uuid.UUID) ([]model.Sale, error)
	GetTransaction(ctx context.Context, transactionID uuid.UUID) ([]model.Sale, error)
}

type saleService struct {
	store      repository.Store
	hub        EventPublisher
	log        *logrus.Logger
	maxRetries int
}

func NewSaleService(store repository.Store, hub EventPublisher, log *logrus.Logger, maxRetries int) SaleService {
	if maxRetries < 1 {
		maxRetries = DefaultSaleRetries
	}
	return &saleService{store: store, hub: hub, log: log, maxRetries: maxRetries}
}

func (s *saleService) RecordSale(ctx context.Context, req *RecordSaleRequest) (*SaleResult, error) {
	if req.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if req.SalePrice.IsNegative() {
		return nil, ErrInvalidPrice
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	saleDate := req.SaleDate.UTC()
	if req.SaleDate.IsZero() {
		saleDate = utcNow()
	}

	for attempt := 1; ; attempt++ {
		result, err := s.recordOnce(ctx, req, saleDate)
		if err == nil {
			s.log.WithFields(logrus.Fields{
				"transaction_id":  result.TransactionID,
				"product_id":      result.ProductID,
				"quantity":        result.Quantity,
				"batches":         len(result.Sales),
				"remaining_stock": result.RemainingStock,
				"attempt":         attempt,
			}).Info("sale recorded")
			publish(s.hub, EventSaleRecorded, result)
			return result, nil
		}

		if !lostRace(err) {
			if !IsClientError(err) {
				logger.LogError(s.log, "sale", "RecordSale", "record sale", req.ProductID, err)
			}
			return nil, classify(err)
		}

		if attempt >= s.maxRetries {
			s.log.WithFields(logrus.Fields{
				"product_id": req.ProductID,
				"attempts":   attempt,
			}).Warn("sale abandoned after repeated batch conflicts")
			return nil, fmt.Errorf("%w: %d attempts", ErrConcurrentStockConflict, attempt)
		}

		s.log.WithFields(logrus.Fields{
			"product_id": req.ProductID,
			"attempt":    attempt,
			"reason":     err.Error(),
		}).Debug("batch changed under allocation, retrying")
	}
}

func lostRace(err error) bool {
	return errors.Is(err, repository.ErrBatchVersionConflict) ||
		errors.Is(err, repository.ErrInsufficientBatchQuantity)
}

func (s *saleService) recordOnce(ctx context.Context, req *RecordSaleRequest, saleDate time.Time) (*SaleResult, error) {
	var result *SaleResult

	err := s.store.Transaction(ctx, func(tx repository.Repositories) error {
		if _, err := lockOpenLedger(ctx, tx, saleDate); err != nil {
			return err
		}

		product, err := tx.Products().LockByID(ctx, req.ProductID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrProductNotFound
		} else if err != nil {
			return err
		}

		batches, err := tx.Batches().ListActiveByProduct(ctx, product.ID)
		if err != nil {
			return err
		}

		plan, err := Allocate(product.ID, batches, req.Quantity, saleDate)
		if err != nil {
			return err
		}

		transactionID := uuid.New()
		salePrice := req.SalePrice.Round(2)
		sales := make([]model.Sale, 0, len(plan))
		for _, a := range plan {
			if _, err := tx.Batches().Decrement(ctx, a.Batch, a.Quantity); err != nil {
				return err
			}
			sale := model.Sale{
				TransactionID: transactionID,
				ProductID:     product.ID,
				BatchID:       a.Batch.ID,
				Quantity:      a.Quantity,
				SalePrice:     salePrice,
				PurchasePrice: a.UnitCost,
				SaleDate:      saleDate,
				CustomerID:    req.CustomerID,
				InvoiceNumber: req.InvoiceNumber,
			}
			sale.ComputeProfit()
			sales = append(sales, sale)
		}

		if err := tx.Sales().CreateMany(ctx, sales); err != nil {
			return err
		}

		remaining, err := syncTotalStock(ctx, tx, product.ID)
		if err != nil {
			return err
		}
		if expected := product.TotalStock - req.Quantity; remaining != expected {
			s.log.WithFields(logrus.Fields{
				"product_id": product.ID,
				"expected":   expected,
				"actual":     remaining,
			}).Warn("stock counter drifted from batch quantities, corrected")
		}

		result = summarize(transactionID, product.ID, sales, remaining)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func summarize(transactionID, productID uuid.UUID, sales []model.Sale, remaining int) *SaleResult {
	result := &SaleResult{
		TransactionID:  transactionID,
		ProductID:      productID,
		Revenue:        decimal.Zero,
		Cost:           decimal.Zero,
		Profit:         decimal.Zero,
		RemainingStock: remaining,
		Sales:          sales,
	}
	for i := range sales {
		result.Quantity += sales[i].Quantity
		result.Revenue = result.Revenue.Add(sales[i].Revenue())
		result.Cost = result.Cost.Add(sales[i].Cost())
		result.Profit = result.Profit.Add(sales[i].Profit)
	}
	result.ProfitMargin = model.MarginPercent(result.Profit, result.Revenue)
	return result
}

func (s *saleService) ListSales(ctx context.Context, from, to time.Time) ([]model.Sale, error) {
	sales, err := s.store.Sales().ListInRange(ctx, from, to)
	return sales, classify(err)
}

func (s *saleService) ListProductSales(ctx context.Context, productID uuid.UUID) ([]model.Sale, error) {
	if _, err := s.store.Products().FindByID(ctx, productID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, classify(err)
	}
	sales, err := s.store.Sales().ListByProduct(ctx, productID)
	return sales, classify(err)
}

func (s *saleService) GetTransaction(ctx context.Context, transactionID uuid.UUID) ([]model.Sale, error) {
	sales, err := s.store.Sales().FindByTransaction(ctx, transactionID)
	if err != nil {
		return nil, classify(err)
	}
	if len(sales) == 0 {
		return nil, ErrTransactionNotFound
	}
	return sales, nil
}
