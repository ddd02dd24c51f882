// Package catalog provides a file-backed price list for the catalog
// collaborator.
package catalog

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	domainErrors "github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/errors"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/model"
	"github.com/wekeepgrowing/marketplace-backend/services/payment/internal/domain/provider"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type fileItem struct {
	Kind     model.ItemKind `yaml:"kind"`
	ID       string         `yaml:"id"`
	Title    string         `yaml:"title"`
	Price    string         `yaml:"price"`
	AuthorID string         `yaml:"author_id"`
	Free     bool           `yaml:"free"`
}

type fileCatalog struct {
	Items []fileItem `yaml:"items"`
}

// YAMLCatalog serves prices from a YAML file loaded into memory
type YAMLCatalog struct {
	mu     sync.RWMutex
	prices map[model.ItemRef]*provider.ItemPrice
	logger *zap.Logger
}

// NewYAMLCatalog returns an empty catalog; call Load to fill it
func NewYAMLCatalog(logger *zap.Logger) *YAMLCatalog {
	return &YAMLCatalog{logger: logger}
}

// LoadYAMLCatalog reads the price list at path
func LoadYAMLCatalog(path string, logger *zap.Logger) (*YAMLCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	c := NewYAMLCatalog(logger)
	if err := c.Load(data); err != nil {
		return nil, err
	}

	logger.Info("Catalog loaded",
		zap.String("path", path),
		zap.Int("items", len(c.prices)))

	return c, nil
}

// Load replaces the price list with the YAML document in data
func (c *YAMLCatalog) Load(data []byte) error {
	var doc fileCatalog
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse catalog: %w", err)
	}

	prices := make(map[model.ItemRef]*provider.ItemPrice, len(doc.Items))
	for i, item := range doc.Items {
		ref := model.ItemRef{Kind: item.Kind, ID: item.ID}
		if !ref.Kind.Valid() || ref.ID == "" {
			return fmt.Errorf("catalog item %d: invalid reference %s", i, ref)
		}
		if _, dup := prices[ref]; dup {
			return fmt.Errorf("catalog item %d: duplicate %s", i, ref)
		}

		price := &provider.ItemPrice{Title: item.Title, IsFree: item.Free, Amount: decimal.Zero}
		if !item.Free {
			amount, err := decimal.NewFromString(item.Price)
			if err != nil {
				return fmt.Errorf("catalog item %s: invalid price %q: %w", ref, item.Price, err)
			}
			if amount.IsNegative() {
				return fmt.Errorf("catalog item %s: negative price", ref)
			}
			price.Amount = amount
		}

		if item.AuthorID != "" {
			authorID, err := uuid.Parse(item.AuthorID)
			if err != nil {
				return fmt.Errorf("catalog item %s: invalid author_id: %w", ref, err)
			}
			price.AuthorID = &authorID
		}

		prices[ref] = price
	}

	c.mu.Lock()
	c.prices = prices
	c.mu.Unlock()
	return nil
}

// PriceOf returns the current price of item
func (c *YAMLCatalog) PriceOf(ctx context.Context, item model.ItemRef) (*provider.ItemPrice, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	price, ok := c.prices[item]
	if !ok {
		return nil, domainErrors.ErrItemNotFound
	}
	copied := *price
	return &copied, nil
}
