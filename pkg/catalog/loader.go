package catalog

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadFile reads a product list from a JSON array file.
func LoadFile(path string) ([]Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var products []Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}

	if len(products) == 0 {
		return nil, fmt.Errorf("catalog file %s contains no products", path)
	}

	for i, p := range products {
		if p.ID == "" {
			return nil, fmt.Errorf("catalog entry %d: id is required", i)
		}
		if p.Name == "" {
			return nil, fmt.Errorf("catalog entry %s: name is required", p.ID)
		}
		if p.Price <= 0 {
			return nil, fmt.Errorf("catalog entry %s: price must be positive", p.ID)
		}
	}

	return products, nil
}

// FromFile creates a catalog backed by a JSON file.
func FromFile(path string) (*Catalog, error) {
	products, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return New(products), nil
}
