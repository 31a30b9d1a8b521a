package model

import "time"

// User represents an account that owns shortened URLs. The core never
// mutates a user after signup.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// URL represents a shortened URL entity
type URL struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	OriginalURL string    `json:"original_url"`
	ShortCode   string    `json:"short_code"`
	CreatedAt   time.Time `json:"created_at"`
}

// Visit represents one redirect event. Append-only; the visitor address
// is stored only as a one-way SHA-256 digest.
type Visit struct {
	ID            int64     `json:"id"`
	URLID         int64     `json:"url_id"`
	VisitorIPHash string    `json:"visitor_ip_hash"`
	UserAgent     string    `json:"user_agent"`
	Referer       string    `json:"referer"`
	ClickedAt     time.Time `json:"clicked_at"`
}

// ClickEvent is the message published to the analytics broker for each
// recorded visit.
type ClickEvent struct {
	URLID         int64     `json:"url_id"`
	ShortCode     string    `json:"short_code"`
	VisitorIPHash string    `json:"visitor_ip_hash"`
	UserAgent     string    `json:"user_agent"`
	Referer       string    `json:"referer"`
	ClickedAt     time.Time `json:"clicked_at"`
}

// SignupRequest represents the request body for account creation
type SignupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// LoginRequest represents the request body for credential issuance
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse carries an issued bearer credential
type TokenResponse struct {
	Token string `json:"token"`
}

// ShortenRequest represents the request body for creating a short URL
type ShortenRequest struct {
	URL string `json:"url" binding:"required"`
}

// GraphInsightRequest represents the request body for graph-specific AI insight
type GraphInsightRequest struct {
	URLID     int64  `json:"url_id" binding:"required"`
	GraphType string `json:"graph_type" binding:"required"`
}

// ChatRequest represents the request body for the analytics chat endpoint
type ChatRequest struct {
	URLID   int64  `json:"url_id" binding:"required"`
	Message string `json:"message" binding:"required"`
	Context string `json:"context"`
}

// InsightRequest represents the request body for AI insight generation
type InsightRequest struct {
	URLID int64 `json:"url_id" binding:"required"`
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
