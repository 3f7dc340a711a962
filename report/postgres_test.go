package report

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPostgresRecord(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	rec, err := NewPostgres(db, "")
	if err != nil {
		t.Fatal(err)
	}

	h := testHeader(6)
	rows := testRows(h)

	query := regexp.QuoteMeta("INSERT INTO pulse_amplitudes (serial, started, mode, dsp, ac_comp, width, length_ns, amplitude_set, measured, attenuator, unattenuated, pass, tag) VALUES " +
		"($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13),($14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26)")
	mock.ExpectExec(query).
		WithArgs(
			"SS-0042", started, "Local", "Differential", true, int64(1), 12.8, int64(350), 349.8766, 6.0, 175.4155, true, "",
			"SS-0042", started, "Local", "Differential", true, int64(2), 25.6, int64(350), 0.0, 6.0, 175.4155, false, "[No_Falling_Edge_Found]",
		).
		WillReturnResult(sqlmock.NewResult(0, 2))

	if err := rec.Record(context.Background(), h, rows); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresRecordWithoutAttenuator(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	rec, err := NewPostgres(db, "lab.amplitudes")
	if err != nil {
		t.Fatal(err)
	}

	h := testHeader(0)
	rows := testRows(h)[:1]

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO lab.amplitudes")).
		WithArgs("SS-0042", started, "Local", "Differential", true, int64(1), 12.8, int64(350), 349.8766, 0.0, nil, true, "").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := rec.Record(context.Background(), h, rows); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresRecordNoRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	rec, _ := NewPostgres(db, "")
	if err := rec.Record(context.Background(), testHeader(0), nil); err != nil {
		t.Fatalf("expected nil error for empty batch, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresRecordError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	errDown := errors.New("connection refused")
	mock.ExpectExec("INSERT INTO").WillReturnError(errDown)

	rec, _ := NewPostgres(db, "")
	h := testHeader(0)
	if err := rec.Record(context.Background(), h, testRows(h)); !errors.Is(err, errDown) {
		t.Fatalf("Record() error = %v, want %v", err, errDown)
	}
}

func TestPostgresEnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	rec, _ := NewPostgres(db, "")
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS pulse_amplitudes (")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := rec.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestNewPostgresRejectsTableName(t *testing.T) {
	for _, name := range []string{"x; DROP TABLE y", "1abc", "a.", "päls"} {
		if _, err := NewPostgres(nil, name); !errors.Is(err, ErrInvalidTable) {
			t.Errorf("NewPostgres(%q) error = %v", name, err)
		}
	}

	if p, err := NewPostgres(nil, "results_2025"); err != nil || p.Name() != "postgres" {
		t.Fatalf("NewPostgres(valid) = %v, %v", p, err)
	}
}
