package batch

import (
	"encoding/base64"
	"encoding/json"

	"github.com/golang/snappy"

	"github.com/SaanjSulthana/hospitality-management-platform-sub005/internal/event"
)

// CompressIfLarge serializes events and, when the payload exceeds threshold
// bytes, snappy-compresses it for transport as a base64 string. It returns
// ("", false, nil) when the payload is under the threshold or threshold is
// zero; the caller then ships the events uncompressed.
func CompressIfLarge(events []event.Event, threshold int) (string, bool, error) {
	if threshold <= 0 {
		return "", false, nil
	}
	raw, err := json.Marshal(events)
	if err != nil {
		return "", false, err
	}
	if len(raw) <= threshold {
		return "", false, nil
	}
	enc := snappy.Encode(nil, raw)
	return base64.StdEncoding.EncodeToString(enc), true, nil
}

// Decompress reverses CompressIfLarge. Consumers call this on batch envelopes
// carrying the compressed flag.
func Decompress(data string) ([]event.Event, error) {
	enc, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, err
	}
	raw, err := snappy.Decode(nil, enc)
	if err != nil {
		return nil, err
	}
	var events []event.Event
	if err := json.Unmarshal(raw, &events); err != nil {
		return nil, err
	}
	return events, nil
}
