package assignment

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ReviewerIDs accepts either a JSON array of IDs or one comma-separated
// string. Trimming and blank removal happen in the orchestrator.
type ReviewerIDs []string

func (ids *ReviewerIDs) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*ids = nil
		return nil
	}

	switch data[0] {
	case '[':
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return fmt.Errorf("reviewer_ids must be a list of strings: %w", err)
		}
		*ids = list
	case '"':
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		*ids = strings.Split(raw, ",")
	default:
		return fmt.Errorf("reviewer_ids must be a list or a comma-separated string")
	}
	return nil
}
