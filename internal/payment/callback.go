package payment

import (
	"fmt"
	"strconv"
)

// Callback is the provider envelope posted to the reconciliation
// endpoint after an STK push resolves.
type Callback struct {
	Body CallbackBody `json:"Body"`
}

// CallbackBody wraps the stkCallback payload.
type CallbackBody struct {
	StkCallback StkCallback `json:"stkCallback"`
}

// StkCallback carries the outcome of one push attempt. ResultCode 0
// is success; any other code is a failure described by ResultDesc.
type StkCallback struct {
	MerchantRequestID string            `json:"MerchantRequestID"`
	CheckoutRequestID string            `json:"CheckoutRequestID"`
	ResultCode        int               `json:"ResultCode"`
	ResultDesc        string            `json:"ResultDesc"`
	CallbackMetadata  *CallbackMetadata `json:"CallbackMetadata,omitempty"`
}

// CallbackMetadata is the key/value list attached to successful
// callbacks.
type CallbackMetadata struct {
	Item []MetadataItem `json:"Item"`
}

// MetadataItem is one metadata entry.
type MetadataItem struct {
	Name  string `json:"Name"`
	Value any    `json:"Value,omitempty"`
}

// Validate checks the structural requirements: the correlation key
// must be present before any order is touched.
func (c *Callback) Validate() error {
	if c.Body.StkCallback.CheckoutRequestID == "" {
		return fmt.Errorf("missing CheckoutRequestID")
	}
	return nil
}

// CorrelationKey returns the provider-issued id the triggering order
// is looked up by.
func (c *Callback) CorrelationKey() string {
	return c.Body.StkCallback.CheckoutRequestID
}

// Success reports whether the payment went through.
func (c *Callback) Success() bool {
	return c.Body.StkCallback.ResultCode == 0
}

// FailureReason returns the provider's human-readable reason.
func (c *Callback) FailureReason() string {
	return c.Body.StkCallback.ResultDesc
}

// ReceiptNumber returns the provider transaction id from the
// metadata, empty when absent.
func (c *Callback) ReceiptNumber() string {
	return c.metadataString("MpesaReceiptNumber")
}

// PhoneNumber returns the paying phone number from the metadata,
// empty when absent.
func (c *Callback) PhoneNumber() string {
	return c.metadataString("PhoneNumber")
}

// Amount returns the settled amount from the metadata, zero when
// absent.
func (c *Callback) Amount() float64 {
	meta := c.Body.StkCallback.CallbackMetadata
	if meta == nil {
		return 0
	}
	for _, item := range meta.Item {
		if item.Name != "Amount" {
			continue
		}
		switch v := item.Value.(type) {
		case float64:
			return v
		case string:
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return f
			}
		}
	}
	return 0
}

func (c *Callback) metadataString(name string) string {
	meta := c.Body.StkCallback.CallbackMetadata
	if meta == nil {
		return ""
	}
	for _, item := range meta.Item {
		if item.Name != name {
			continue
		}
		switch v := item.Value.(type) {
		case string:
			return v
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}
