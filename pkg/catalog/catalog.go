// Package catalog holds the product catalog and its search rules.
package catalog

import (
	"strconv"
	"strings"
	"sync"
)

// Product is a single catalog entry.
type Product struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Price    int      `json:"price"`
	Currency string   `json:"currency"`
	Category string   `json:"category"`
	Color    string   `json:"color"`
	Sizes    []string `json:"sizes"`
	Image    string   `json:"image"`
}

// Filters narrows a catalog search. MaxPrice is kept as the raw string
// the resolver produced; a value that does not parse as an integer is
// ignored rather than failing the search.
type Filters struct {
	Category string `json:"category,omitempty"`
	Color    string `json:"color,omitempty"`
	MaxPrice string `json:"max_price,omitempty"`
}

// Empty reports whether no filter is set.
func (f Filters) Empty() bool {
	return f.Category == "" && f.Color == "" && f.MaxPrice == ""
}

// Catalog is an in-memory product list. Reload swaps the list atomically
// so concurrent searches never observe a partial update.
type Catalog struct {
	mu       sync.RWMutex
	products []Product
}

// New creates a catalog with the given products.
func New(products []Product) *Catalog {
	return &Catalog{products: append([]Product(nil), products...)}
}

// Default returns the built-in six-item catalog.
func Default() *Catalog {
	return New(defaultProducts())
}

func defaultProducts() []Product {
	return []Product{
		{ID: "p1", Name: "Classic White Tee", Price: 800, Currency: "INR", Category: "t-shirt", Color: "white", Sizes: []string{"S", "M", "L"}, Image: "1.png"},
		{ID: "p2", Name: "Midnight Black Hoodie", Price: 1500, Currency: "INR", Category: "hoodie", Color: "black", Sizes: []string{"M", "L", "XL"}, Image: "2.png"},
		{ID: "p3", Name: "Vintage Denim Jacket", Price: 2500, Currency: "INR", Category: "jacket", Color: "blue", Sizes: []string{"M", "L"}, Image: "3.png"},
		{ID: "p4", Name: "Ceramic Coffee Mug", Price: 450, Currency: "INR", Category: "mug", Color: "white", Sizes: []string{"standard"}, Image: "4.png"},
		{ID: "p5", Name: "Matte Black Tumbler", Price: 700, Currency: "INR", Category: "mug", Color: "black", Sizes: []string{"500ml"}, Image: "5.png"},
		{ID: "p6", Name: "Graphic Print Tee", Price: 950, Currency: "INR", Category: "t-shirt", Color: "grey", Sizes: []string{"S", "M", "L", "XL"}, Image: "6.png"},
	}
}

// Products returns a copy of the current product list.
func (c *Catalog) Products() []Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Product(nil), c.products...)
}

// Reload replaces the product list.
func (c *Catalog) Reload(products []Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products = append([]Product(nil), products...)
}

// Lookup finds a product by id.
func (c *Catalog) Lookup(id string) (Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.products {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}

// normalize lowercases a term and removes hyphens so "t-shirt" matches
// "tshirt" and "t shirt" alike.
func normalize(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, "-", " "))
}

// searchText builds the haystack a product is matched against.
func searchText(p Product) string {
	return normalize(p.Name + " " + p.Category + " " + p.Color)
}

// Search filters products by case-insensitive substring match over the
// product's name, category, and color, with an optional price ceiling.
func (c *Catalog) Search(filters Filters) []Product {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if filters.Empty() {
		return append([]Product(nil), c.products...)
	}

	maxPrice := -1
	if filters.MaxPrice != "" {
		if v, err := strconv.Atoi(strings.TrimSpace(filters.MaxPrice)); err == nil {
			maxPrice = v
		}
	}

	var matched []Product
	for _, p := range c.products {
		text := searchText(p)

		if filters.Category != "" && !strings.Contains(text, normalize(filters.Category)) {
			continue
		}
		if filters.Color != "" && !strings.Contains(text, normalize(filters.Color)) {
			continue
		}
		if maxPrice >= 0 && p.Price > maxPrice {
			continue
		}

		matched = append(matched, p)
	}

	return matched
}
