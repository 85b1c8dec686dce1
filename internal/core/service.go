package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/JonMunkholm/hrpulse/internal/analytics"
	"github.com/JonMunkholm/hrpulse/internal/config"
	"github.com/JonMunkholm/hrpulse/internal/csvcodec"
	"github.com/JonMunkholm/hrpulse/internal/logging"
	"github.com/JonMunkholm/hrpulse/internal/roster"
)

// maxImportHistory caps the import attempts remembered for the admin page.
const maxImportHistory = 50

// Service provides the business logic over one in-memory roster.
type Service struct {
	store    *roster.Store
	limiter  *ImportLimiter
	audit    *AuditLog
	sessions *SessionStore

	mode        csvcodec.Mode
	schema      SchemaDefinition
	hasSchema   bool
	maxFileSize int64
	readTimeout time.Duration
	auth        config.AuthConfig

	mu      sync.Mutex
	history []ImportHistoryEntry
}

// NewService creates a Service over store. The configured schema must be
// registered when fixed-schema mode is selected.
func NewService(store *roster.Store, cfg *config.Config) (*Service, error) {
	mode, err := csvcodec.ParseMode(cfg.Import.SchemaMode)
	if err != nil {
		return nil, err
	}

	def, ok := Get(cfg.Import.Schema)
	if !ok && mode == csvcodec.FixedSchema {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSchema, cfg.Import.Schema)
	}

	return &Service{
		store:       store,
		limiter:     NewImportLimiter(cfg.Import.MaxConcurrent, cfg.Import.MaxWaitTime),
		audit:       NewAuditLog(cfg.Audit.Capacity),
		sessions:    NewSessionStore(cfg.Auth.SessionTTL),
		mode:        mode,
		schema:      def,
		hasSchema:   ok,
		maxFileSize: cfg.Import.MaxFileSize,
		readTimeout: cfg.Import.ReadTimeout,
		auth:        cfg.Auth,
	}, nil
}

// Mode returns the configured import mode.
func (s *Service) Mode() csvcodec.Mode { return s.mode }

// Schema returns the configured schema definition, if registered.
func (s *Service) Schema() (SchemaDefinition, bool) { return s.schema, s.hasSchema }

// policy returns the codec policy for imports.
func (s *Service) policy() csvcodec.Policy {
	if s.mode == csvcodec.FixedSchema {
		return s.schema.Policy(csvcodec.FixedSchema)
	}
	return csvcodec.SchemaFreePolicy()
}

// Snapshot returns a copy of the current roster.
func (s *Service) Snapshot() roster.Snapshot {
	return s.store.Snapshot()
}

// Version returns the current roster version.
func (s *Service) Version() uint64 {
	return s.store.Version()
}

// Subscribe forwards roster change notifications.
func (s *Service) Subscribe() (<-chan uint64, func()) {
	return s.store.Subscribe()
}

// Columns describes each column of the current roster for table views and
// edit forms.
func (s *Service) Columns() []ColumnInfo {
	snap := s.store.Snapshot()
	idCol := roster.IdentityColumn(snap.Headers)
	nameCol := roster.NameColumn(snap.Headers)

	cols := make([]ColumnInfo, len(snap.Headers))
	for i, h := range snap.Headers {
		info := ColumnInfo{
			Name:     h,
			Type:     fieldTypeName(FieldText),
			Identity: h == idCol,
			Display:  h == nameCol,
		}
		if spec, ok := s.specFor(h); ok {
			info.Type = fieldTypeName(spec.Type)
			info.Numeric = spec.Type == FieldNumeric
			info.Enum = spec.EnumValues
		}
		if !info.Numeric && columnHasNumbers(snap, h) {
			info.Numeric = true
			info.Type = fieldTypeName(FieldNumeric)
		}
		cols[i] = info
	}
	return cols
}

// specFor returns the configured schema's spec for column.
func (s *Service) specFor(column string) (FieldSpec, bool) {
	if !s.hasSchema {
		return FieldSpec{}, false
	}
	return s.schema.Spec(column)
}

func columnHasNumbers(snap roster.Snapshot, column string) bool {
	for _, r := range snap.Records {
		if r.Value(column).IsNumber() {
			return true
		}
	}
	return false
}

// Reset restores the bundled sample roster.
func (s *Service) Reset(ctx context.Context) uint64 {
	before := s.store.Snapshot().Len()
	version := s.store.Reset()

	s.audit.Log(ctx, AuditLogParams{
		Action:       ActionReset,
		RowsAffected: before,
		Reason:       "restore sample data",
	})
	logging.FromContext(ctx).Info("roster reset", "version", version, "rows_replaced", before)
	return version
}

// Export serializes the current roster and returns it with its file name.
func (s *Service) Export(ctx context.Context) ([]byte, string) {
	snap := s.store.Snapshot()
	data := csvcodec.Serialize(snap.Records, snap.Headers)

	s.audit.Log(ctx, AuditLogParams{
		Action:       ActionExport,
		RowsAffected: snap.Len(),
	})
	logging.FromContext(ctx).Info("roster exported", "rows", snap.Len(), "bytes", len(data))
	return []byte(data), csvcodec.ExportFileName
}

// Template returns a header-only CSV for the configured schema, or for the
// current roster when no schema is registered.
func (s *Service) Template() ([]byte, string) {
	headers := s.store.Headers()
	if s.hasSchema {
		headers = s.schema.Info.Columns
	}
	return []byte(strings.Join(headers, ",")), "employees_template.csv"
}

// Dashboard computes the admin overview from the current roster.
func (s *Service) Dashboard() analytics.Dashboard {
	return analytics.Build(s.store.Snapshot())
}

// AuditEntries queries the audit log.
func (s *Service) AuditEntries(filter AuditLogFilter) AuditLogResult {
	return s.audit.Entries(filter)
}

// ExportAuditLog serializes matching audit entries as CSV.
func (s *Service) ExportAuditLog(filter AuditLogFilter) []byte {
	return []byte(s.audit.ExportCSV(filter))
}

// ImportStatus reports limiter state for monitoring.
func (s *Service) ImportStatus() LimiterStatus {
	return s.limiter.Status()
}

// WaitForImports blocks until in-flight imports finish or ctx is done.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// ImportHistory returns recent import attempts, newest first.
func (s *Service) ImportHistory() []ImportHistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]ImportHistoryEntry, len(s.history))
	for i, h := range s.history {
		out[len(s.history)-1-i] = h
	}
	return out
}

func (s *Service) recordHistory(entry ImportHistoryEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history, entry)
	if len(s.history) > maxImportHistory {
		s.history = s.history[len(s.history)-maxImportHistory:]
	}
}
