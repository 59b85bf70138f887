package domain

import (
	"strconv"
	"strings"
	"time"
)

// NotFound is the sentinel stored in a detail field that the label did not show
const NotFound = "Not found"

// Field names a single product detail. The string value is the wire key used
// by the extraction schema and by the HTTP API.
type Field string

const (
	FieldProductName       Field = "Product Name"
	FieldBagNo             Field = "Bag No"
	FieldBatchNo           Field = "Batch No"
	FieldManufacturingDate Field = "Manufacturing Date"
	FieldExpiryDate        Field = "Expiry Date"
	FieldMRP               Field = "MRP"
	FieldWeight            Field = "Weight"
	FieldQuantity          Field = "Quantity"
)

// Fields lists every detail field in display order
var Fields = []Field{
	FieldProductName,
	FieldBagNo,
	FieldBatchNo,
	FieldManufacturingDate,
	FieldExpiryDate,
	FieldMRP,
	FieldWeight,
	FieldQuantity,
}

// prefillable are the operator-owned fields. Values supplied for them before
// extraction win over whatever the extractor returns.
var prefillable = []Field{FieldProductName, FieldBagNo, FieldQuantity}

// ParseField resolves a wire key into a Field
func ParseField(name string) (Field, error) {
	for _, f := range Fields {
		if string(f) == name {
			return f, nil
		}
	}
	return "", ErrUnknownField
}

// ProductDetails holds the structured fields of one product label
type ProductDetails struct {
	ProductName       string `json:"Product Name"`
	BagNo             string `json:"Bag No"`
	BatchNo           string `json:"Batch No"`
	ManufacturingDate string `json:"Manufacturing Date"`
	ExpiryDate        string `json:"Expiry Date"`
	MRP               string `json:"MRP"`
	Weight            string `json:"Weight"`
	Quantity          string `json:"Quantity"`
}

// Get returns the value of a field
func (d ProductDetails) Get(f Field) string {
	switch f {
	case FieldProductName:
		return d.ProductName
	case FieldBagNo:
		return d.BagNo
	case FieldBatchNo:
		return d.BatchNo
	case FieldManufacturingDate:
		return d.ManufacturingDate
	case FieldExpiryDate:
		return d.ExpiryDate
	case FieldMRP:
		return d.MRP
	case FieldWeight:
		return d.Weight
	case FieldQuantity:
		return d.Quantity
	}
	return ""
}

// Set overwrites the value of a field
func (d *ProductDetails) Set(f Field, value string) error {
	switch f {
	case FieldProductName:
		d.ProductName = value
	case FieldBagNo:
		d.BagNo = value
	case FieldBatchNo:
		d.BatchNo = value
	case FieldManufacturingDate:
		d.ManufacturingDate = value
	case FieldExpiryDate:
		d.ExpiryDate = value
	case FieldMRP:
		d.MRP = value
	case FieldWeight:
		d.Weight = value
	case FieldQuantity:
		d.Quantity = value
	default:
		return ErrUnknownField
	}
	return nil
}

// Validate checks the fields an operator must supply before a record can be
// confirmed. It returns a *ValidationError listing every failing field.
func (d ProductDetails) Validate() error {
	fields := map[string]string{}
	if strings.TrimSpace(d.ProductName) == "" {
		fields[string(FieldProductName)] = "is required"
	}
	if strings.TrimSpace(d.BagNo) == "" {
		fields[string(FieldBagNo)] = "is required"
	}
	if qty, err := strconv.Atoi(strings.TrimSpace(d.Quantity)); err != nil || qty <= 0 {
		fields[string(FieldQuantity)] = "must be a positive whole number"
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// Confirmable reports whether Validate passes
func (d ProductDetails) Confirmable() bool {
	return d.Validate() == nil
}

// Extracted is what the extraction service reads off a label. Bag number and
// quantity never come from the image.
type Extracted struct {
	ProductName       string `json:"Product Name"`
	BatchNo           string `json:"Batch No"`
	ManufacturingDate string `json:"Manufacturing Date"`
	ExpiryDate        string `json:"Expiry Date"`
	MRP               string `json:"MRP"`
	Weight            string `json:"Weight"`
}

// PartialDetails is a sparse set of field values, used for prefilled input
// and for field patches.
type PartialDetails map[Field]string

// Clone returns a copy that can be mutated independently
func (p PartialDetails) Clone() PartialDetails {
	out := make(PartialDetails, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Merge overlays other onto p, returning a new map
func (p PartialDetails) Merge(other PartialDetails) PartialDetails {
	out := p.Clone()
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Validate rejects keys that are not known fields
func (p PartialDetails) Validate() error {
	bad := map[string]string{}
	for k := range p {
		if _, err := ParseField(string(k)); err != nil {
			bad[string(k)] = "unknown field"
		}
	}
	if len(bad) > 0 {
		return &ValidationError{Fields: bad}
	}
	return nil
}

// MergePrefilled builds the record committed for an extracted image.
// Product name, bag number and quantity take the prefilled value when one was
// given; every other field comes from the extraction result. Bag number and
// quantity are empty when not prefilled.
func MergePrefilled(extracted Extracted, prefilled PartialDetails) ProductDetails {
	details := ProductDetails{
		ProductName:       extracted.ProductName,
		BatchNo:           extracted.BatchNo,
		ManufacturingDate: extracted.ManufacturingDate,
		ExpiryDate:        extracted.ExpiryDate,
		MRP:               extracted.MRP,
		Weight:            extracted.Weight,
	}
	for _, f := range prefillable {
		if v := prefilled[f]; v != "" {
			_ = details.Set(f, v)
		}
	}
	return details
}

// FallbackDetails is the editable record shown when extraction fails: every
// label field carries the sentinel and all prefilled values are applied on top.
func FallbackDetails(prefilled PartialDetails) ProductDetails {
	details := ProductDetails{
		BatchNo:           NotFound,
		ManufacturingDate: NotFound,
		ExpiryDate:        NotFound,
		MRP:               NotFound,
		Weight:            NotFound,
	}
	for f, v := range prefilled {
		_ = details.Set(f, v)
	}
	return details
}

// QueuedImage is an image waiting for extraction
type QueuedImage struct {
	ID         int64          `json:"id"`
	Filename   string         `json:"filename"`
	MIMEType   string         `json:"mime_type"`
	Image      []byte         `json:"image"`
	Prefilled  PartialDetails `json:"prefilled"`
	EnqueuedAt time.Time      `json:"enqueued_at"`
}

// DisplayName names the item in user-facing messages
func (q QueuedImage) DisplayName() string {
	if q.Filename != "" {
		return q.Filename
	}
	return "item #" + strconv.FormatInt(q.ID, 10)
}

// ConfirmedProduct is a finalized record. Timestamp is the unique key.
type ConfirmedProduct struct {
	Timestamp int64          `json:"timestamp"`
	Details   ProductDetails `json:"details"`
	Image     []byte         `json:"image"`
	MIMEType  string         `json:"mime_type"`
}

// Status is the transient progress of a queued item during a sync pass
type Status string

const (
	StatusProcessing Status = "processing"
	StatusSynced     Status = "synced"
	StatusFailed     Status = "failed"
)
