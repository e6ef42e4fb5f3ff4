package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Upload is one persisted spreadsheet import.
type Upload struct {
	ID             string          `json:"id"`
	Filename       string          `json:"filename"`
	UserID         string          `json:"userId"`
	UploadedAt     time.Time       `json:"uploadedAt"`
	Columns        []string        `json:"columns"` // Header order of the source sheet
	Data           []Row           `json:"data"`
	Visualizations []Visualization `json:"visualizations"`

	// JSON string fields for DB storage
	ColumnsJSON string `json:"-"`
	DataJSON    string `json:"-"`
}

// PrepareForSave marshals the rows and columns into their JSON string forms
// for DB storage.
func (u *Upload) PrepareForSave() error {
	if u.Data == nil {
		u.Data = []Row{}
	}
	if u.Columns == nil {
		u.Columns = []string{}
	}
	b, err := EncodeRows(u.Data)
	if err != nil {
		return fmt.Errorf("marshal rows: %w", err)
	}
	u.DataJSON = string(b)

	b, err = json.Marshal(u.Columns)
	if err != nil {
		return fmt.Errorf("marshal columns: %w", err)
	}
	u.ColumnsJSON = string(b)
	return nil
}

// PrepareForAPI unmarshals the stored rows and makes sure slices encode as
// arrays rather than null.
func (u *Upload) PrepareForAPI() error {
	if u.DataJSON != "" {
		rows, err := DecodeRows([]byte(u.DataJSON))
		if err != nil {
			return fmt.Errorf("unmarshal rows: %w", err)
		}
		u.Data = rows
	}
	if u.ColumnsJSON != "" {
		if err := json.Unmarshal([]byte(u.ColumnsJSON), &u.Columns); err != nil {
			return fmt.Errorf("unmarshal columns: %w", err)
		}
	}
	if u.Columns == nil {
		u.Columns = []string{}
	}
	if u.Data == nil {
		u.Data = []Row{}
	}
	if u.Visualizations == nil {
		u.Visualizations = []Visualization{}
	}
	return nil
}

// HasColumn reports whether name is part of the upload's row schema.
func (u *Upload) HasColumn(name string) bool {
	for _, c := range u.Columns {
		if c == name {
			return true
		}
	}
	for _, row := range u.Data {
		if _, ok := row[name]; ok {
			return true
		}
	}
	return false
}
