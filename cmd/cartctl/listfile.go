package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/cartwise/backend/internal/domain"
)

// fileListID identifies the single list loaded from a file
const fileListID = "file"

// listFile is the YAML layout of a shopping list:
//
//	name: Weekly
//	items:
//	  - name: Süt 1 lt
//	    quantity: 2
//	    unit: lt
//	    price: 70
type listFile struct {
	Name  string         `yaml:"name"`
	Items []listFileItem `yaml:"items"`
}

type listFileItem struct {
	Name     string  `yaml:"name"`
	Quantity float64 `yaml:"quantity"`
	Unit     string  `yaml:"unit"`
	Price    float64 `yaml:"price"`
}

// readListFile parses and validates a list file into line items
func readListFile(path string) (string, []domain.LineItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("reading list file: %w", err)
	}
	return parseListFile(data)
}

func parseListFile(data []byte) (string, []domain.LineItem, error) {
	var file listFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return "", nil, fmt.Errorf("%w: parsing list file: %v", domain.ErrInvalidRequest, err)
	}

	now := time.Now().UTC()
	items := make([]domain.LineItem, 0, len(file.Items))
	for i, entry := range file.Items {
		name := strings.TrimSpace(entry.Name)
		if name == "" {
			return "", nil, fmt.Errorf("%w: item %d has no name", domain.ErrInvalidRequest, i+1)
		}
		quantity := entry.Quantity
		if quantity == 0 {
			quantity = 1
		}
		if quantity < 0 {
			return "", nil, fmt.Errorf("%w: item %q has a negative quantity", domain.ErrInvalidRequest, name)
		}
		if entry.Price < 0 {
			return "", nil, fmt.Errorf("%w: item %q has a negative price", domain.ErrInvalidRequest, name)
		}

		items = append(items, domain.LineItem{
			ID:         fmt.Sprintf("%s-%d", fileListID, i+1),
			ListID:     fileListID,
			Name:       name,
			Quantity:   quantity,
			Unit:       strings.TrimSpace(entry.Unit),
			TotalPrice: entry.Price,
			CreatedAt:  now,
		})
	}

	return file.Name, items, nil
}

// staticItems serves a fixed set of line items for fileListID
type staticItems []domain.LineItem

func (s staticItems) GetLineItemsForList(ctx context.Context, listID string) ([]domain.LineItem, error) {
	if listID != fileListID {
		return []domain.LineItem{}, nil
	}
	return s, nil
}
