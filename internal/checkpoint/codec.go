package checkpoint

import (
	"encoding/json"
	"fmt"
)

func encodeJSON(s Snapshot) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode checkpoint: %w", err)
	}
	return data, nil
}

func decodeJSON(data []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrIncompatibleSnapshot, err)
	}
	if err := checkVersion(snap); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}
