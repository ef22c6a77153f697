// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// =============================================================================
// AUTH
// =============================================================================

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is the data of a successful login.
type LoginResult struct {
	Token string `json:"token"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// =============================================================================
// QUERY
// =============================================================================

// QueryRequest is the body of POST /query/.
type QueryRequest struct {
	Query    string `json:"query"`
	ThreadID string `json:"thread_id,omitempty"`
}

// QueryResult is the data of a query. Order and Documents are passed
// through untouched.
type QueryResult struct {
	Response  string          `json:"response"`
	Intent    string          `json:"intent,omitempty"`
	Order     json.RawMessage `json:"order,omitempty"`
	Documents json.RawMessage `json:"documents,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// =============================================================================
// ORDERS
// =============================================================================

// Order is an order record.
type Order struct {
	ID            int        `json:"id"`
	OrderID       string     `json:"order_id"`
	CustomerName  string     `json:"customer_name"`
	CustomerEmail string     `json:"customer_email"`
	Product       string     `json:"product"`
	Status        string     `json:"status"`
	Amount        FlexString `json:"amount"`
	CreatedAt     string     `json:"created_at"`
	UpdatedAt     string     `json:"updated_at"`
	CanSendEmail  bool       `json:"can_send_email"`
}

// SendEmailRequest is the body of POST /order/send-email.
type SendEmailRequest struct {
	OrderID string `json:"order_id"`
}

// SendEmailResult is the data of a dispatched order e-mail.
type SendEmailResult struct {
	OrderID string `json:"order_id"`
}

// =============================================================================
// KNOWLEDGE BASE
// =============================================================================

// Document is one file in the knowledge base.
type Document struct {
	Filename string   `json:"filename"`
	Size     int64    `json:"size"`
	Modified UnixTime `json:"modified"`
}

// DocumentList is the data of GET /rag/files.
type DocumentList struct {
	Files []Document `json:"files"`
}

// UploadedFile is a stored upload; Filename may differ from the local name
// when the backend de-duplicated it.
type UploadedFile struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

// FailedFile is a rejected upload.
type FailedFile struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// UploadResult is the data of the upload endpoints. IndexUpdated is only
// set by upload-and-update.
type UploadResult struct {
	Uploaded     []UploadedFile `json:"uploaded"`
	Failed       []FailedFile   `json:"failed"`
	IndexUpdated *bool          `json:"index_updated,omitempty"`
}

// ReindexResult is the data of POST /rag/update.
type ReindexResult struct {
	Status string `json:"status"`
}

// ClearResult is the data of DELETE /rag/clear.
type ClearResult struct {
	DeletedCount int    `json:"deleted_count"`
	Filename     string `json:"filename,omitempty"`
	FileDeleted  bool   `json:"file_deleted,omitempty"`
}

// =============================================================================
// LENIENT SCALARS
// =============================================================================

// FlexString accepts a JSON string, number or null.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*f = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("flex string: %w", err)
		}
		*f = FlexString(n.String())
	}
	return nil
}

// UnixTime is a float number of seconds since the epoch.
type UnixTime struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (u *UnixTime) UnmarshalJSON(data []byte) error {
	s := string(bytes.TrimSpace(data))
	if s == "null" || s == "" {
		u.Time = time.Time{}
		return nil
	}
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("unix time: %w", err)
	}
	whole, frac := math.Modf(secs)
	u.Time = time.Unix(int64(whole), int64(frac*1e9))
	return nil
}

// MarshalJSON implements json.Marshaler.
func (u UnixTime) MarshalJSON() ([]byte, error) {
	if u.IsZero() {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(float64(u.UnixNano())/1e9, 'f', -1, 64)), nil
}
