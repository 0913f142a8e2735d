package store

import "time"

// OrderLine is one purchased item within an order.
type OrderLine struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	Size        string `json:"size"`
	Price       int    `json:"price"`
	Subtotal    int    `json:"subtotal"`
	Image       string `json:"image,omitempty"`
}

// Order is a persisted order record.
type Order struct {
	OrderID     string      `json:"order_id"`
	Timestamp   time.Time   `json:"timestamp"`
	SessionID   string      `json:"session_id,omitempty"`
	Items       []OrderLine `json:"items"`
	TotalAmount int         `json:"total_amount"`
	Currency    string      `json:"currency"`
	Status      string      `json:"status"`
}

// CaseRecord is a fraud case under verification. VerificationCode is the
// ground truth the guard checks utterances against; it never leaves the
// server.
type CaseRecord struct {
	ID               string `json:"id"`
	CustomerName     string `json:"customer_name,omitempty"`
	VerificationCode string `json:"verification_code"`
	Status           string `json:"status"`
}

// WellnessEntry is one completed daily check-in.
type WellnessEntry struct {
	ID        string `json:"id"`
	Date      string `json:"date"` // YYYY-MM-DD
	SessionID string `json:"session_id,omitempty"`
	Mood      string `json:"mood"`
	Energy    string `json:"energy"`
	Goals     string `json:"goals"`
}
