package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/cwbudde/algo-pulse/measure/sweep"
)

// DefaultTable is the table used by NewPostgres when table is empty.
const DefaultTable = "pulse_amplitudes"

// ErrInvalidTable is returned by NewPostgres for a table name that is not a
// plain identifier.
var ErrInvalidTable = errors.New("report: invalid table name")

var postgresColumns = []string{
	"serial", "started", "mode", "dsp", "ac_comp", "width", "length_ns", "amplitude_set",
	"measured", "attenuator", "unattenuated", "pass", "tag",
}

// Postgres inserts result rows into a database/sql handle opened with the
// pgx driver.
type Postgres struct {
	db    *sql.DB
	table string
}

// NewPostgres creates a recorder writing to table.
func NewPostgres(db *sql.DB, table string) (*Postgres, error) {
	if table == "" {
		table = DefaultTable
	}

	if !isIdentifier(table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}

	return &Postgres{db: db, table: table}, nil
}

// Name identifies the recorder in logs.
func (p *Postgres) Name() string { return "postgres" }

// Schema returns the CREATE TABLE statement for the recorder's table.
func (p *Postgres) Schema() string {
	return "CREATE TABLE IF NOT EXISTS " + p.table + " (" +
		"id BIGSERIAL PRIMARY KEY, " +
		"serial TEXT NOT NULL, " +
		"started TIMESTAMPTZ NOT NULL, " +
		"mode TEXT NOT NULL, " +
		"dsp TEXT NOT NULL, " +
		"ac_comp BOOLEAN NOT NULL, " +
		"width INTEGER NOT NULL, " +
		"length_ns DOUBLE PRECISION NOT NULL, " +
		"amplitude_set INTEGER NOT NULL, " +
		"measured DOUBLE PRECISION NOT NULL, " +
		"attenuator DOUBLE PRECISION NOT NULL, " +
		"unattenuated DOUBLE PRECISION, " +
		"pass BOOLEAN NOT NULL, " +
		"tag TEXT NOT NULL)"
}

// EnsureSchema creates the table if it does not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, p.Schema()); err != nil {
		return fmt.Errorf("report: create table %s: %w", p.table, err)
	}

	return nil
}

// Record inserts rows with a single statement.
func (p *Postgres) Record(ctx context.Context, h sweep.Header, rows []sweep.Row) error {
	if len(rows) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(p.table)
	b.WriteString(" (")
	b.WriteString(strings.Join(postgresColumns, ", "))
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(postgresColumns))
	for i, r := range rows {
		if i > 0 {
			b.WriteString(",")
		}

		b.WriteString("(")
		for j := range postgresColumns {
			if j > 0 {
				b.WriteString(",")
			}

			fmt.Fprintf(&b, "$%d", len(args)+j+1)
		}
		b.WriteString(")")

		var unattenuated any
		if h.Unattenuated() {
			unattenuated = r.Unattenuated
		}

		args = append(args,
			r.Serial,
			h.Started,
			r.Point.Mode.String(),
			r.Point.DSP.String(),
			r.Point.ACComp,
			int64(r.Point.Width),
			r.Point.LengthNS(),
			int64(r.Point.Amplitude),
			r.Measured,
			r.Attenuator,
			unattenuated,
			r.Pass,
			r.Tag,
		)
	}

	if _, err := p.db.ExecContext(ctx, b.String(), args...); err != nil {
		return fmt.Errorf("report: insert into %s: %w", p.table, err)
	}

	return nil
}

func isIdentifier(s string) bool {
	for i, c := range s {
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		case c == '.' && i > 0 && i < len(s)-1:
		default:
			return false
		}
	}

	return s != ""
}

var _ sweep.Recorder = (*Postgres)(nil)
