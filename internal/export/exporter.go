// Package export writes cases, their history and the moderation audit log to
// files that can be handed to auditors or legal review.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/robalyx/warden/internal/database/types"
	"github.com/robalyx/warden/internal/export/csv"
	"github.com/robalyx/warden/internal/export/sqlite"
	exportTypes "github.com/robalyx/warden/internal/export/types"
	"go.uber.org/zap"
)

var ErrUnsupportedFormat = errors.New("unsupported export format")

// Format represents a supported export format.
type Format string

const (
	FormatSQLite Format = "sqlite"
	FormatCSV    Format = "csv"
)

// EngineVersion is bumped on breaking changes to the exported layout.
const EngineVersion = "1.0.0"

// ConfigFilename is the metadata file written next to the exported data.
const ConfigFilename = "export_config.json"

// Config holds the configuration for exports.
type Config struct {
	ExportVersion string    `json:"exportVersion"`
	Description   string    `json:"description"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	Salt          string    `json:"-"`
	HashType      string    `json:"hashType,omitempty"`
	Iterations    uint32    `json:"iterations,omitempty"`
	Concurrency   int       `json:"-"`
}

// CaseSource reads cases and their history.
type CaseSource interface {
	GetCasesOpenedBetween(ctx context.Context, start, end time.Time) ([]*types.ModerationCase, error)
	GetHistoryForCases(ctx context.Context, caseIDs []string) ([]*types.CaseHistoryEntry, error)
}

// AuditSource reads the moderation audit log.
type AuditSource interface {
	GetAuditBetween(ctx context.Context, start, end time.Time) ([]*types.ModerationAuditLog, error)
}

// Summary counts what an export wrote.
type Summary struct {
	Cases   int
	History int
	Audit   int
}

// Exporter handles exporting governance records.
type Exporter struct {
	cases   CaseSource
	audit   AuditSource
	outDir  string
	config  *Config
	formats []Format
	logger  *zap.Logger
}

// New creates a new exporter instance.
func New(cases CaseSource, audit AuditSource, outDir string, config *Config, logger *zap.Logger) *Exporter {
	return &Exporter{
		cases:  cases,
		audit:  audit,
		outDir: outDir,
		config: config,
		formats: []Format{
			FormatSQLite,
			FormatCSV,
		},
		logger: logger.Named("export"),
	}
}

// ExportAll exports the configured range in all supported formats. Subject
// and target user IDs are pseudonymized when a salt is configured; moderator
// IDs are always kept.
func (e *Exporter) ExportAll(ctx context.Context) (*Summary, error) {
	e.logger.Info("Starting export",
		zap.Time("start", e.config.Start),
		zap.Time("end", e.config.End),
		zap.Bool("pseudonymized", e.config.Salt != ""),
		zap.String("outDir", e.outDir),
		zap.String("exportVersion", e.config.ExportVersion))

	cases, history, audit, err := e.fetch(ctx)
	if err != nil {
		return nil, err
	}

	e.logger.Info("Fetched records",
		zap.Int("cases", len(cases)),
		zap.Int("history", len(history)),
		zap.Int("audit", len(audit)))

	pseudonym := e.pseudonymizer(cases, audit)
	tables := []*exportTypes.Table{
		casesTable(cases, pseudonym),
		historyTable(history),
		auditTable(audit, pseudonym),
	}

	if err := e.writeConfig(); err != nil {
		return nil, err
	}

	for _, format := range e.formats {
		e.logger.Info("Writing format", zap.String("format", string(format)))

		if err := e.export(format, tables); err != nil {
			return nil, fmt.Errorf("failed to export %s format: %w", format, err)
		}
	}

	e.logger.Info("Export completed", zap.String("outDir", e.outDir))

	return &Summary{Cases: len(cases), History: len(history), Audit: len(audit)}, nil
}

// fetch reads every record in the configured range.
func (e *Exporter) fetch(ctx context.Context) (
	[]*types.ModerationCase, []*types.CaseHistoryEntry, []*types.ModerationAuditLog, error,
) {
	cases, err := e.cases.GetCasesOpenedBetween(ctx, e.config.Start, e.config.End)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to get cases: %w", err)
	}

	caseIDs := make([]string, len(cases))
	for i, c := range cases {
		caseIDs[i] = c.ID
	}

	history, err := e.cases.GetHistoryForCases(ctx, caseIDs)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to get case history: %w", err)
	}

	audit, err := e.audit.GetAuditBetween(ctx, e.config.Start, e.config.End)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to get audit log: %w", err)
	}

	return cases, history, audit, nil
}

// pseudonymizer returns the mapping applied to subject and target IDs.
func (e *Exporter) pseudonymizer(cases []*types.ModerationCase, audit []*types.ModerationAuditLog) func(string) string {
	if e.config.Salt == "" {
		return func(id string) string { return id }
	}

	var ids []string
	for _, c := range cases {
		ids = append(ids, c.SubjectUserID)
	}
	for _, l := range audit {
		ids = append(ids, l.TargetUserID)
	}
	slices.Sort(ids)
	ids = slices.Compact(ids)

	lookup := hashIDs(ids, e.config.Salt, e.config.Iterations, e.config.Concurrency)
	return func(id string) string { return lookup[id] }
}

// writeConfig saves the export metadata alongside the data files.
func (e *Exporter) writeConfig() error {
	cfg := *e.config
	if cfg.Salt != "" {
		cfg.HashType = HashTypeSHA256
	} else {
		cfg.Iterations = 0
	}

	jsonConfig := struct {
		*Config

		EngineVersion string `json:"engineVersion"`
	}{
		Config:        &cfg,
		EngineVersion: EngineVersion,
	}

	data, err := sonic.MarshalIndent(jsonConfig, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal export config: %w", err)
	}

	if err := os.WriteFile(filepath.Join(e.outDir, ConfigFilename), data, 0o600); err != nil {
		return fmt.Errorf("failed to write export config: %w", err)
	}

	return nil
}

// export handles exporting data in the specified format.
func (e *Exporter) export(format Format, tables []*exportTypes.Table) error {
	var exporter interface {
		Export(tables []*exportTypes.Table) error
	}

	switch format {
	case FormatSQLite:
		exporter = sqlite.New(e.outDir)
	case FormatCSV:
		exporter = csv.New(e.outDir)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	return exporter.Export(tables)
}

func casesTable(cases []*types.ModerationCase, pseudonym func(string) string) *exportTypes.Table {
	table := &exportTypes.Table{
		Name: "cases",
		Columns: []exportTypes.Column{
			{Name: "id", Type: exportTypes.ColumnText},
			{Name: "subject", Type: exportTypes.ColumnText},
			{Name: "status", Type: exportTypes.ColumnText},
			{Name: "priority", Type: exportTypes.ColumnText},
			{Name: "opened_by", Type: exportTypes.ColumnText},
			{Name: "assignee", Type: exportTypes.ColumnText},
			{Name: "reason_codes", Type: exportTypes.ColumnText},
			{Name: "confidence", Type: exportTypes.ColumnReal},
			{Name: "outcome", Type: exportTypes.ColumnText},
			{Name: "reviewer", Type: exportTypes.ColumnText},
			{Name: "review_note", Type: exportTypes.ColumnText},
			{Name: "opened_at", Type: exportTypes.ColumnText},
			{Name: "resolved_at", Type: exportTypes.ColumnText},
		},
	}

	for _, c := range cases {
		reasons := make([]string, len(c.ReasonCodes))
		for i, code := range c.ReasonCodes {
			reasons[i] = string(code)
		}

		var outcome, reviewer, note, resolvedAt string
		if c.Resolution != nil {
			outcome = string(c.Resolution.Outcome)
			reviewer = c.Resolution.ReviewerID
			note = c.Resolution.ReviewNote
			resolvedAt = timestamp(c.Resolution.ResolvedAt)
		}

		table.Rows = append(table.Rows, []any{
			c.ID,
			pseudonym(c.SubjectUserID),
			string(c.Status),
			string(c.Priority),
			c.OpenedBy,
			c.AssigneeID,
			strings.Join(reasons, "; "),
			c.Confidence,
			outcome,
			reviewer,
			note,
			timestamp(c.OpenedAt),
			resolvedAt,
		})
	}

	return table
}

func historyTable(history []*types.CaseHistoryEntry) *exportTypes.Table {
	table := &exportTypes.Table{
		Name: "case_history",
		Columns: []exportTypes.Column{
			{Name: "id", Type: exportTypes.ColumnInteger},
			{Name: "case_id", Type: exportTypes.ColumnText},
			{Name: "actor", Type: exportTypes.ColumnText},
			{Name: "actor_type", Type: exportTypes.ColumnText},
			{Name: "action", Type: exportTypes.ColumnText},
			{Name: "details", Type: exportTypes.ColumnText},
			{Name: "created_at", Type: exportTypes.ColumnText},
		},
	}

	for _, h := range history {
		table.Rows = append(table.Rows, []any{
			h.ID,
			h.CaseID,
			h.ActorID,
			string(h.ActorType),
			string(h.Action),
			details(h.Details),
			timestamp(h.CreatedAt),
		})
	}

	return table
}

func auditTable(audit []*types.ModerationAuditLog, pseudonym func(string) string) *exportTypes.Table {
	table := &exportTypes.Table{
		Name: "audit_log",
		Columns: []exportTypes.Column{
			{Name: "id", Type: exportTypes.ColumnText},
			{Name: "actor", Type: exportTypes.ColumnText},
			{Name: "actor_level", Type: exportTypes.ColumnInteger},
			{Name: "target", Type: exportTypes.ColumnText},
			{Name: "action_type", Type: exportTypes.ColumnText},
			{Name: "reversible", Type: exportTypes.ColumnInteger},
			{Name: "restrictive", Type: exportTypes.ColumnInteger},
			{Name: "case_id", Type: exportTypes.ColumnText},
			{Name: "details", Type: exportTypes.ColumnText},
			{Name: "created_at", Type: exportTypes.ColumnText},
			{Name: "reversed_at", Type: exportTypes.ColumnText},
			{Name: "reversed_by", Type: exportTypes.ColumnText},
		},
	}

	for _, l := range audit {
		var reversedAt string
		if l.ReversedAt != nil {
			reversedAt = timestamp(*l.ReversedAt)
		}

		table.Rows = append(table.Rows, []any{
			l.ID,
			l.ActorID,
			int64(l.ActorLevel),
			pseudonym(l.TargetUserID),
			string(l.ActionType),
			flag(l.Reversible),
			flag(l.Restrictive),
			l.CaseID,
			details(l.Details),
			timestamp(l.CreatedAt),
			reversedAt,
			l.ReversedBy,
		})
	}

	return table
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func flag(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func details(d map[string]any) string {
	if len(d) == 0 {
		return ""
	}
	data, err := sonic.ConfigStd.Marshal(d)
	if err != nil {
		return ""
	}
	return string(data)
}
