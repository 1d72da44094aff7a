package models

import (
	"encoding/json"
	"fmt"
)

// Record is any typed row that goes through the log.
type Record interface {
	Reading | ActionRecord | MachineRecord | PlantRecord
}

// Encode is the single serialization boundary for logged records.
func Encode[T Record](rec T) ([]byte, error) {
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", rec, err)
	}
	return b, nil
}

// Decode parses a logged record and stamps it with the id the log assigned.
func Decode[T Record](id int64, data []byte) (T, error) {
	var rec T
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("decode %T: %w", rec, err)
	}
	setID(&rec, id)
	return rec, nil
}

func setID(rec any, id int64) {
	switch r := rec.(type) {
	case *Reading:
		r.ID = id
	case *ActionRecord:
		r.ID = id
	case *MachineRecord:
		r.ID = id
	case *PlantRecord:
		r.ID = id
	}
}
