package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

// OrdersJournal is an append-only JSONL file of order records.
type OrdersJournal struct {
	path string
	mu   sync.Mutex
}

// NewOrdersJournal creates a journal backed by the file at path.
func NewOrdersJournal(path string) (*OrdersJournal, error) {
	if path == "" {
		return nil, fmt.Errorf("orders journal path cannot be empty")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create orders directory: %w", err)
	}

	return &OrdersJournal{path: path}, nil
}

// Append writes an order as a single JSON line and syncs to disk.
func (j *OrdersJournal) Append(order Order) error {
	if order.OrderID == "" {
		return fmt.Errorf("order id cannot be empty")
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	file, err := os.OpenFile(j.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open orders journal: %w", err)
	}
	defer file.Close()

	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to marshal order: %w", err)
	}

	if _, err := file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write order: %w", err)
	}

	if err := file.Sync(); err != nil {
		return fmt.Errorf("failed to sync orders journal: %w", err)
	}

	log.Debug().Str("orderId", order.OrderID).Int("total", order.TotalAmount).Msg("Order appended")
	return nil
}

// All loads every parseable order in journal order. Corrupt lines are
// skipped with a warning instead of failing the read.
func (j *OrdersJournal) All() ([]Order, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.readAll()
}

func (j *OrdersJournal) readAll() ([]Order, error) {
	file, err := os.Open(j.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Order{}, nil
		}
		return nil, fmt.Errorf("failed to open orders journal: %w", err)
	}
	defer file.Close()

	var orders []Order
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if line == "" {
			continue
		}

		var order Order
		if err := json.Unmarshal([]byte(line), &order); err != nil {
			log.Warn().Int("line", lineNum).Err(err).Msg("Skipping corrupt order line")
			continue
		}
		if order.OrderID == "" {
			log.Warn().Int("line", lineNum).Msg("Skipping order line without id")
			continue
		}

		orders = append(orders, order)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read orders journal: %w", err)
	}

	return orders, nil
}

// Last returns the most recent order, or false when the journal is empty.
func (j *OrdersJournal) Last() (Order, bool, error) {
	orders, err := j.All()
	if err != nil {
		return Order{}, false, err
	}
	if len(orders) == 0 {
		return Order{}, false, nil
	}
	return orders[len(orders)-1], true, nil
}

// Compact rewrites the journal keeping only parseable records. Used by
// the maintenance job to trim corrupt lines accumulated from crashes.
func (j *OrdersJournal) Compact() (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	orders, err := j.readAll()
	if err != nil {
		return 0, err
	}

	tempPath := j.path + ".tmp"
	file, err := os.OpenFile(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return 0, fmt.Errorf("failed to create temp journal: %w", err)
	}

	for _, order := range orders {
		data, err := json.Marshal(order)
		if err != nil {
			file.Close()
			os.Remove(tempPath)
			return 0, fmt.Errorf("failed to marshal order: %w", err)
		}
		if _, err := file.Write(append(data, '\n')); err != nil {
			file.Close()
			os.Remove(tempPath)
			return 0, fmt.Errorf("failed to write order: %w", err)
		}
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return 0, fmt.Errorf("failed to sync temp journal: %w", err)
	}
	file.Close()

	if err := os.Rename(tempPath, j.path); err != nil {
		os.Remove(tempPath)
		return 0, fmt.Errorf("failed to replace orders journal: %w", err)
	}

	return len(orders), nil
}
