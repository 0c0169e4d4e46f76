package adapters

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/effectus/schemadraft/schema"
)

// DefaultRecordsPath is where records sit in an enveloped payload
const DefaultRecordsPath = "data"

// ErrInvalidPayload is returned for payloads that hold no record list
var ErrInvalidPayload = errors.New("invalid catalog payload")

// DecodeRecords reads a record list from a JSON payload. The list may be
// the whole document or sit under the "data" key.
func DecodeRecords(payload []byte) ([]schema.Record, error) {
	return DecodeRecordsPath(payload, DefaultRecordsPath)
}

// DecodeRecordsPath reads a record list found at the gjson path, falling
// back to a top-level array
func DecodeRecordsPath(payload []byte, path string) ([]schema.Record, error) {
	if !gjson.ValidBytes(payload) {
		return nil, fmt.Errorf("%w: malformed json", ErrInvalidPayload)
	}

	list := gjson.ParseBytes(payload)
	if !list.IsArray() {
		if path == "" {
			path = DefaultRecordsPath
		}
		list = list.Get(path)
		if !list.IsArray() {
			return nil, fmt.Errorf("%w: no record array at %q", ErrInvalidPayload, path)
		}
	}

	items := list.Array()
	records := make([]schema.Record, 0, len(items))
	for i, item := range items {
		if !item.IsObject() {
			return nil, fmt.Errorf("%w: record %d is not an object", ErrInvalidPayload, i)
		}
		uid := item.Get("uid").String()
		if uid == "" {
			return nil, fmt.Errorf("%w: record %d has no uid", ErrInvalidPayload, i)
		}
		var record schema.Record
		if err := json.Unmarshal([]byte(item.Raw), &record); err != nil {
			return nil, fmt.Errorf("decoding record %q: %w", uid, err)
		}
		records = append(records, record)
	}
	return records, nil
}

// EncodeRecords renders records as an enveloped payload accepted by
// DecodeRecords
func EncodeRecords(records []schema.Record) ([]byte, error) {
	if records == nil {
		records = []schema.Record{}
	}
	return json.Marshal(map[string]interface{}{DefaultRecordsPath: records})
}
