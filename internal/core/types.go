package core

import (
	"strings"
	"time"

	"github.com/JonMunkholm/hrpulse/internal/csvcodec"
	"github.com/JonMunkholm/hrpulse/internal/roster"
)

// FieldType represents the expected data type for a roster column.
type FieldType int

const (
	FieldText FieldType = iota
	FieldEnum
	FieldNumeric
	FieldBool
)

// FieldSpec defines validation rules for a single roster column.
type FieldSpec struct {
	Name       string              // Column header name (must match CSV exactly)
	Type       FieldType           // Expected data type
	Required   bool                // Column must exist in a fixed-schema header row
	AllowEmpty bool                // Empty values pass validation
	EnumValues []string            // Valid values for FieldEnum type
	Normalizer func(string) string // Optional transformation applied to edited values
}

// SchemaInfo contains display information about a roster schema.
type SchemaInfo struct {
	Key     string   // Unique identifier: "employee_rewards"
	Label   string   // Display name: "Employee Rewards"
	Columns []string // Header column names in template order
}

// SchemaDefinition describes one known roster layout.
type SchemaDefinition struct {
	Info       SchemaInfo
	FieldSpecs []FieldSpec
}

// Spec returns the field spec for column, matched case-insensitively.
func (d SchemaDefinition) Spec(column string) (FieldSpec, bool) {
	for _, s := range d.FieldSpecs {
		if strings.EqualFold(s.Name, column) {
			return s, true
		}
	}
	return FieldSpec{}, false
}

// Policy returns the codec policy for this schema under mode.
func (d SchemaDefinition) Policy(mode csvcodec.Mode) csvcodec.Policy {
	if mode == csvcodec.SchemaFree {
		return csvcodec.SchemaFreePolicy()
	}

	p := csvcodec.Policy{Mode: csvcodec.FixedSchema}
	for _, s := range d.FieldSpecs {
		if s.Required {
			p.Required = append(p.Required, s.Name)
		}
		if s.Type == FieldNumeric {
			p.Numeric = append(p.Numeric, s.Name)
		}
	}
	return p
}

// ColumnInfo describes a column of the current roster for table views and
// edit forms.
type ColumnInfo struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Numeric  bool     `json:"numeric"`
	Identity bool     `json:"identity,omitempty"`
	Display  bool     `json:"display,omitempty"`
	Enum     []string `json:"enum,omitempty"`
}

// ImportResult contains the outcome of a successful import.
type ImportResult struct {
	ImportID string        `json:"importId"`
	FileName string        `json:"fileName"`
	Records  int           `json:"records"`
	Columns  []string      `json:"columns"`
	Mode     string        `json:"mode"`
	Version  uint64        `json:"version"`
	Duration time.Duration `json:"duration"`
}

// ImportHistoryEntry records one import attempt, successful or not.
type ImportHistoryEntry struct {
	ImportID   string    `json:"importId"`
	FileName   string    `json:"fileName"`
	Records    int       `json:"records"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	ImportedBy string    `json:"importedBy,omitempty"`
	ImportedAt time.Time `json:"importedAt"`
}

// FilterOperator represents a comparison operator for column filters.
type FilterOperator string

const (
	OpContains   FilterOperator = "contains"
	OpEquals     FilterOperator = "eq"
	OpStartsWith FilterOperator = "starts"
	OpEndsWith   FilterOperator = "ends"
	OpGreaterEq  FilterOperator = "gte"
	OpLessEq     FilterOperator = "lte"
	OpGreater    FilterOperator = "gt"
	OpLess       FilterOperator = "lt"
	OpIn         FilterOperator = "in"
)

// ColumnFilter represents a single filter condition on a column.
type ColumnFilter struct {
	Column   string         // Column name
	Operator FilterOperator // Comparison operator
	Value    string         // Filter value (comma-separated for OpIn)
}

// FilterSet represents all active filters (combined with AND logic).
type FilterSet struct {
	Filters []ColumnFilter
}

// SortSpec represents a single sort column and direction.
type SortSpec struct {
	Column string // Column name
	Dir    string // "asc" or "desc"
}

// QueryParams selects a page of the roster.
type QueryParams struct {
	Page     int
	PageSize int
	Sorts    []SortSpec
	Search   string
	Filters  FilterSet
}

// TableDataResult is one page of roster records.
type TableDataResult struct {
	Headers    []string        `json:"headers"`
	Records    []roster.Record `json:"records"`
	TotalRows  int             `json:"totalRows"`
	Page       int             `json:"page"`
	PageSize   int             `json:"pageSize"`
	TotalPages int             `json:"totalPages"`
	Version    uint64          `json:"version"`
}

// ColumnAggregation holds aggregated values for a single numeric column.
type ColumnAggregation struct {
	Column string   `json:"column"`
	Sum    *float64 `json:"sum,omitempty"` // nil if no numeric values
	Avg    *float64 `json:"avg,omitempty"`
	Min    *float64 `json:"min,omitempty"`
	Max    *float64 `json:"max,omitempty"`
	Count  int      `json:"count"` // Count of numeric values
}

// Aggregations maps column names to their aggregation results.
type Aggregations map[string]*ColumnAggregation
