package payment

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// envelopeKey is the notes key carrying the structured metadata envelope.
const envelopeKey = "order_v2"

// Metadata is the order intent embedded in a checkout session and decoded
// from a captured-payment event. It must contain everything needed to rebuild
// an order without re-querying session state.
type Metadata struct {
	// Version of the envelope encoding. 2 for the structured JSON envelope,
	// 1 for the legacy comma-joined lists.
	Version int `json:"v"`

	BuyerID     string `json:"buyerId"`
	Email       string `json:"email"`
	DisplayName string `json:"name,omitempty"`

	Lines []MetadataLine `json:"lines"`
}

// MetadataLine is one product line of the order intent.
type MetadataLine struct {
	ProductID string `json:"productId"`
	Quantity  int32  `json:"qty"`

	// UnitPriceMinor is the unit price at session-creation time, in minor
	// units. Authoritative in v2 envelopes, where zero is a real price
	// (free product). Legacy (v1) metadata carried no prices at all; the
	// materializer keys the catalog-price fallback off Version, not off
	// this value.
	UnitPriceMinor int64 `json:"unitPrice,omitempty"`
}

// Encode serializes the metadata into processor notes.
// Only the structured v2 envelope is written; v1 exists for decoding replayed
// events from before the envelope was introduced.
func (m Metadata) Encode() (map[string]string, error) {
	m.Version = 2
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode order metadata: %w", err)
	}

	return map[string]string{envelopeKey: string(raw)}, nil
}

// DecodeMetadata reconstructs order intent from processor notes.
// Prefers the v2 envelope; falls back to the legacy comma-joined
// productIds/quantities keys so old in-flight events still materialize.
// Returns ErrMalformedMetadata when neither form yields index-aligned lines.
func DecodeMetadata(notes map[string]string) (*Metadata, error) {
	if notes == nil {
		return nil, ErrMalformedMetadata
	}

	if raw, ok := notes[envelopeKey]; ok {
		var m Metadata
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return nil, ErrMalformedMetadata
		}
		if len(m.Lines) == 0 {
			return nil, ErrMalformedMetadata
		}
		for _, line := range m.Lines {
			if line.ProductID == "" || line.Quantity <= 0 {
				return nil, ErrMalformedMetadata
			}
		}
		m.Version = 2
		return &m, nil
	}

	return decodeLegacyMetadata(notes)
}

// decodeLegacyMetadata handles the original index-aligned comma-joined lists.
// The two lists MUST stay aligned; any length mismatch is malformed.
func decodeLegacyMetadata(notes map[string]string) (*Metadata, error) {
	idsRaw := notes["productIds"]
	qtysRaw := notes["quantities"]
	if idsRaw == "" || qtysRaw == "" {
		return nil, ErrMalformedMetadata
	}

	ids := strings.Split(idsRaw, ",")
	qtys := strings.Split(qtysRaw, ",")
	if len(ids) != len(qtys) {
		return nil, ErrMalformedMetadata
	}

	lines := make([]MetadataLine, len(ids))
	for i := range ids {
		id := strings.TrimSpace(ids[i])
		qty, err := strconv.ParseInt(strings.TrimSpace(qtys[i]), 10, 32)
		if err != nil || id == "" || qty <= 0 {
			return nil, ErrMalformedMetadata
		}
		lines[i] = MetadataLine{ProductID: id, Quantity: int32(qty)}
	}

	buyerID := notes["buyerId"]
	if buyerID == "" {
		buyerID = notes["clerkUserId"]
	}
	email := notes["email"]
	if email == "" {
		email = notes["userEmail"]
	}

	return &Metadata{
		Version:     1,
		BuyerID:     buyerID,
		Email:       email,
		DisplayName: notes["customerName"],
		Lines:       lines,
	}, nil
}
