package events

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/akarpov87/identity-gateway/internal/gateway/models"
)

const insertQuery = `(?s)^INSERT\s+INTO\s+provisioning_events\s*\(id,\s*user_id,\s*store_kind\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3\)\s*$`

func TestRecord(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(insertQuery).
		WithArgs(sqlmock.AnyArg(), "u-1", "graph").
		WillReturnResult(sqlmock.NewResult(0, 1))

	r := NewPostgresRecorder(db)
	if err := r.Record(context.Background(), "u-1", models.StoreGraph); err != nil {
		t.Fatalf("Record error: %v", err)
	}
}

func TestRecord_DBError(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(insertQuery).
		WithArgs(sqlmock.AnyArg(), "u-1", "graph").
		WillReturnError(errors.New("relation does not exist"))

	r := NewPostgresRecorder(db)
	if err := r.Record(context.Background(), "u-1", models.StoreGraph); err == nil {
		t.Fatal("expected error")
	}
}
