package iostore

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/dustin/go-humanize"
	"github.com/gnames/gn"
	"github.com/gnames/gnfmt"
	"github.com/gnames/gnlib"
	"github.com/medtext/omoplink/pkg/config"
	"github.com/medtext/omoplink/pkg/fingerprint"
	"github.com/medtext/omoplink/pkg/schema"
	"github.com/medtext/omoplink/pkg/sources"
	"golang.org/x/sync/singleflight"
)

// sqliteMaxParams is the default SQLite bound-parameter limit. Rows
// per INSERT statement are capped so a statement never exceeds it.
const sqliteMaxParams = 32766

// maxLineBytes bounds a single source table line.
const maxLineBytes = 1024 * 1024

// Builder creates concept graph store artifacts from OMOP vocabulary
// tables. Concurrent builds of the same sources share one in-flight
// build.
type Builder struct {
	cfg   *config.Config
	group singleflight.Group
}

// NewBuilder creates a Builder.
func NewBuilder(cfg *config.Config) *Builder {
	return &Builder{cfg: cfg}
}

// Build reads the source tables, loads them into a staging SQLite
// file, verifies referential integrity, records build_info and
// publishes the artifact atomically. The returned store is opened
// read-only. An artifact is never partially overwritten: a failed
// build leaves any previous artifact untouched.
func (b *Builder) Build(
	ctx context.Context,
	src *sources.Config,
) (*Store, error) {
	fp, err := SourceFingerprint(src)
	if err != nil {
		return nil, err
	}

	res, err, _ := b.group.Do(fp, func() (any, error) {
		return b.build(ctx, src, fp)
	})
	if err != nil {
		return nil, err
	}
	return res.(*Store), nil
}

func (b *Builder) build(
	ctx context.Context,
	src *sources.Config,
	fp string,
) (*Store, error) {
	start := time.Now()
	target := config.StorePath(b.cfg.HomeDir, fp)
	staging := target + ".staging"
	// Leftover staging file from a crashed build.
	_ = os.Remove(staging)

	slog.Info("Building concept graph store",
		"fingerprint", fp,
		"sources", src.Dir,
		"path", target,
	)

	db, err := sql.Open("sqlite",
		staging+"?_pragma=journal_mode(off)&_pragma=synchronous(off)")
	if err != nil {
		return nil, StoreOpenError(staging, err)
	}

	discard := func() {
		db.Close()
		os.Remove(staging)
	}

	if err = createTables(ctx, db); err != nil {
		discard()
		return nil, err
	}

	gn.Info("(1/4) Importing vocabulary tables...")
	counts := make(map[string]int64)
	for _, table := range sources.TableNames() {
		var n int64
		n, err = b.loadTable(ctx, db, src, table)
		if err != nil {
			discard()
			return nil, err
		}
		counts[table] = n
	}
	gn.Message("<em>Imported %s concepts</em>",
		humanize.Comma(counts[sources.TableConcept]))

	gn.Info("(2/4) Verifying references...")
	if err = verifyReferences(ctx, db); err != nil {
		discard()
		return nil, err
	}

	gn.Info("(3/4) Creating indexes...")
	if err = createIndexes(ctx, db); err != nil {
		discard()
		return nil, err
	}

	gn.Info("(4/4) Publishing artifact...")
	if err = writeBuildInfo(ctx, db, src, fp, counts); err != nil {
		discard()
		return nil, err
	}

	if err = db.Close(); err != nil {
		os.Remove(staging)
		return nil, StorePublishError(target, err)
	}
	if err = os.Rename(staging, target); err != nil {
		os.Remove(staging)
		return nil, StorePublishError(target, err)
	}

	res, err := Open(target)
	if err != nil {
		return nil, err
	}
	res.domains = b.cfg.Embed.Domains

	slog.Info("Concept graph store ready",
		"fingerprint", fp,
		"concepts", counts[sources.TableConcept],
		"ancestors", counts[sources.TableConceptAncestor],
		"relationships", counts[sources.TableConceptRelationship],
		"duration", gnfmt.TimeString(time.Since(start).Seconds()),
	)
	return res, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	for _, model := range schema.All() {
		if _, err := db.ExecContext(ctx, model.TableDDL()); err != nil {
			return StoreInsertError(model.TableName(), err)
		}
	}
	return nil
}

func createIndexes(ctx context.Context, db *sql.DB) error {
	for _, model := range schema.All() {
		for _, ddl := range model.IndexDDL() {
			if _, err := db.ExecContext(ctx, ddl); err != nil {
				return StoreInsertError(model.TableName(), err)
			}
		}
	}
	return nil
}

// fieldSpec describes how one source column converts to a bound
// insert parameter.
type fieldSpec struct {
	col    string
	pos    int
	isInt  bool
	isNull bool
}

// fieldSpecs maps the model columns to header positions. A required
// column missing from the header is fatal.
func fieldSpecs(
	model schema.DDLGenerator,
	header map[string]int,
) ([]fieldSpec, error) {
	t := reflect.TypeOf(model)
	nullString := reflect.TypeOf(sql.NullString{})

	var specs []fieldSpec
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		col := f.Tag.Get("db")
		if col == "" {
			continue
		}

		pos, ok := header[col]
		if !ok {
			return nil, SchemaMissingColumnError(model.TableName(), col)
		}

		spec := fieldSpec{col: col, pos: pos}
		switch {
		case f.Type.Kind() == reflect.Int || f.Type.Kind() == reflect.Int64:
			spec.isInt = true
		case f.Type == nullString:
			spec.isNull = true
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// convertRow turns one source line into bound insert parameters.
// Integer columns are parsed strictly; empty values become NULL for
// integer and nullable text columns.
func convertRow(
	specs []fieldSpec,
	fields []string,
	table string,
	line int,
) ([]any, error) {
	row := make([]any, len(specs))
	for i, spec := range specs {
		raw := fields[spec.pos]
		switch {
		case spec.isInt:
			if raw == "" {
				row[i] = nil
				continue
			}
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return nil, SchemaBadRowError(table, line,
					fmt.Errorf("column %s: %w", spec.col, err))
			}
			row[i] = n
		case spec.isNull && raw == "":
			row[i] = nil
		default:
			row[i] = gnlib.FixUtf8(raw)
		}
	}
	return row, nil
}

// loadTable streams one tab-separated source table into the staging
// database. Rows are accumulated into transaction chunks of
// Store.BatchSize rows; each chunk is written with multi-row INSERT
// statements capped by the SQLite parameter limit.
func (b *Builder) loadTable(
	ctx context.Context,
	db *sql.DB,
	src *sources.Config,
	table string,
) (int64, error) {
	model, ok := modelFor(table)
	if !ok {
		return 0, StoreInsertError(table, fmt.Errorf("unknown table"))
	}

	path, err := src.TablePath(table)
	if err != nil {
		return 0, SchemaMissingTableError(table, path, err)
	}
	f, err := os.Open(path)
	if err != nil {
		return 0, SchemaMissingTableError(table, path, err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return 0, SchemaMissingTableError(table, path, err)
	}

	bar := pb.Full.Start64(stat.Size())
	bar.Set("prefix", fmt.Sprintf("Importing %s: ", table))
	bar.Set(pb.CleanOnFinish, true)
	defer bar.Finish()

	scanner := bufio.NewScanner(bar.NewProxyReader(f))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return 0, SchemaBadRowError(table, 1, err)
		}
		return 0, SchemaBadRowError(table, 1,
			fmt.Errorf("missing header row"))
	}

	header := make(map[string]int)
	headerFields := strings.Split(
		strings.TrimRight(scanner.Text(), "\r"), "\t")
	for i, col := range headerFields {
		header[col] = i
	}

	specs, err := fieldSpecs(model, header)
	if err != nil {
		return 0, err
	}

	cols := schema.Columns(model)
	batch := make([][]any, 0, b.cfg.Store.BatchSize)
	var total int64

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return BuildInterruptedError(ctx.Err())
		default:
		}
		if err := insertBatch(ctx, db, table, cols, batch); err != nil {
			return err
		}
		total += int64(len(batch))
		batch = batch[:0]
		return nil
	}

	line := 1
	for scanner.Scan() {
		line++
		text := strings.TrimRight(scanner.Text(), "\r")
		if text == "" {
			continue
		}

		fields := strings.Split(text, "\t")
		if len(fields) != len(headerFields) {
			return 0, SchemaBadRowError(table, line,
				fmt.Errorf("expected %d fields, got %d",
					len(headerFields), len(fields)))
		}

		row, err := convertRow(specs, fields, table, line)
		if err != nil {
			return 0, err
		}

		batch = append(batch, row)
		if len(batch) >= b.cfg.Store.BatchSize {
			if err := flush(); err != nil {
				return 0, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, SchemaBadRowError(table, line, err)
	}
	if err := flush(); err != nil {
		return 0, err
	}

	slog.Info("Table imported", "table", table, "rows", total)
	return total, nil
}

// insertBatch writes one transaction chunk with multi-row INSERT
// statements sized to the SQLite parameter limit.
func insertBatch(
	ctx context.Context,
	db *sql.DB,
	table string,
	cols []string,
	batch [][]any,
) error {
	maxRows := sqliteMaxParams / len(cols)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return StoreInsertError(table, err)
	}

	placeholder := "(" + strings.Repeat("?, ", len(cols)-1) + "?)"

	for i := 0; i < len(batch); i += maxRows {
		end := min(i+maxRows, len(batch))
		chunk := batch[i:end]

		values := make([]string, len(chunk))
		args := make([]any, 0, len(chunk)*len(cols))
		for j, row := range chunk {
			values[j] = placeholder
			args = append(args, row...)
		}

		query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
			table, strings.Join(cols, ", "), strings.Join(values, ", "))

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			tx.Rollback()
			return StoreInsertError(table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return StoreInsertError(table, err)
	}
	return nil
}

// verifyReferences checks that every concept id referenced by the
// hierarchy and relationship tables exists, and that every concept
// points at known reference rows. Any dangling id aborts the build.
func verifyReferences(ctx context.Context, db *sql.DB) error {
	checks := []struct {
		table, column, query string
	}{
		{
			"concept_ancestor", "ancestor_concept_id",
			`SELECT COUNT(*) FROM concept_ancestor ca
			LEFT JOIN concept c ON c.concept_id = ca.ancestor_concept_id
			WHERE c.concept_id IS NULL`,
		},
		{
			"concept_ancestor", "descendant_concept_id",
			`SELECT COUNT(*) FROM concept_ancestor ca
			LEFT JOIN concept c ON c.concept_id = ca.descendant_concept_id
			WHERE c.concept_id IS NULL`,
		},
		{
			"concept_relationship", "concept_id_1",
			`SELECT COUNT(*) FROM concept_relationship cr
			LEFT JOIN concept c ON c.concept_id = cr.concept_id_1
			WHERE c.concept_id IS NULL`,
		},
		{
			"concept_relationship", "concept_id_2",
			`SELECT COUNT(*) FROM concept_relationship cr
			LEFT JOIN concept c ON c.concept_id = cr.concept_id_2
			WHERE c.concept_id IS NULL`,
		},
		{
			"concept", "domain_id",
			`SELECT COUNT(*) FROM concept c
			LEFT JOIN domain d ON d.domain_id = c.domain_id
			WHERE d.domain_id IS NULL`,
		},
		{
			"concept", "vocabulary_id",
			`SELECT COUNT(*) FROM concept c
			LEFT JOIN vocabulary v ON v.vocabulary_id = c.vocabulary_id
			WHERE v.vocabulary_id IS NULL`,
		},
		{
			"concept", "concept_class_id",
			`SELECT COUNT(*) FROM concept c
			LEFT JOIN concept_class cc
				ON cc.concept_class_id = c.concept_class_id
			WHERE cc.concept_class_id IS NULL`,
		},
	}

	for _, check := range checks {
		select {
		case <-ctx.Done():
			return BuildInterruptedError(ctx.Err())
		default:
		}

		var count int64
		row := db.QueryRowContext(ctx, check.query)
		if err := row.Scan(&count); err != nil {
			return StoreQueryError("verify references", err)
		}
		if count > 0 {
			return SchemaDanglingRefError(check.table, check.column, count)
		}
	}
	return nil
}

// buildParams is the JSON-encoded parameter set recorded in
// build_info.
type buildParams struct {
	SourcesDir string            `json:"sources_dir"`
	Tables     map[string]string `json:"tables,omitempty"`
}

func writeBuildInfo(
	ctx context.Context,
	db *sql.DB,
	src *sources.Config,
	fp string,
	counts map[string]int64,
) error {
	enc := gnfmt.GNjson{}
	params, err := enc.Encode(buildParams{
		SourcesDir: src.Dir,
		Tables:     src.Tables,
	})
	if err != nil {
		return StoreInsertError("build_info", err)
	}

	q := `INSERT INTO build_info
	(fingerprint, uuid, created_at, params,
	 concept_count, ancestor_count, relationship_count)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err = db.ExecContext(ctx, q,
		fp,
		fingerprint.UUID(fp),
		time.Now().UTC().Format(time.RFC3339),
		string(params),
		counts[sources.TableConcept],
		counts[sources.TableConceptAncestor],
		counts[sources.TableConceptRelationship],
	)
	if err != nil {
		return StoreInsertError("build_info", err)
	}
	return nil
}

func modelFor(table string) (schema.DDLGenerator, bool) {
	for _, model := range schema.All() {
		if model.TableName() == table {
			return model, true
		}
	}
	return nil, false
}
