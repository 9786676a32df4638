package profiles

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/akarpov87/identity-gateway/internal/common"
	"github.com/akarpov87/identity-gateway/internal/gateway/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

const upsertQuery = `(?s)^INSERT\s+INTO\s+profiles\s*\(id,\s*email\)\s*VALUES\s*\(\$1,\s*\$2\)\s*ON\s+CONFLICT\s*\(email\)\s*DO\s+UPDATE.*RETURNING\s+id,\s*email,\s*role,\s*tier,.*$`

func TestUpsert_Insert(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "email", "role", "tier", "inserted"}).
		AddRow("id-1", "a@example.com", "user", "free", true)
	mock.ExpectQuery(upsertQuery).
		WithArgs(sqlmock.AnyArg(), "a@example.com").
		WillReturnRows(rows)

	p, created, err := repo.Upsert(context.Background(), "a@example.com")
	if err != nil {
		t.Fatalf("Upsert error: %v", err)
	}
	if !created {
		t.Fatal("expected created=true on insert")
	}
	if p.ID != "id-1" || p.Role != models.RoleUser || p.Tier != models.TierFree {
		t.Fatalf("unexpected principal: %+v", p)
	}
}

func TestUpsert_Conflict(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "email", "role", "tier", "inserted"}).
		AddRow("id-1", "a@example.com", "admin", "pro", false)
	mock.ExpectQuery(upsertQuery).
		WithArgs(sqlmock.AnyArg(), "a@example.com").
		WillReturnRows(rows)

	p, created, err := repo.Upsert(context.Background(), "a@example.com")
	if err != nil {
		t.Fatalf("Upsert error: %v", err)
	}
	if created {
		t.Fatal("expected created=false on conflict")
	}
	if p.Role != models.RoleAdmin || p.Tier != models.TierPro {
		t.Fatalf("unexpected principal: %+v", p)
	}
}

func TestUpsert_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(upsertQuery).
		WithArgs(sqlmock.AnyArg(), "a@example.com").
		WillReturnError(errors.New("db down"))

	_, _, err := repo.Upsert(context.Background(), "a@example.com")
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

const findQuery = `(?s)^SELECT\s+id,\s*email,\s*role,\s*tier\s+FROM\s+profiles\s+WHERE\s+email\s*=\s*\$1\s*$`

func TestFindByEmail_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "email", "role", "tier"}).
		AddRow("id-2", "b@example.com", "user", "pro")
	mock.ExpectQuery(findQuery).WithArgs("b@example.com").WillReturnRows(rows)

	p, err := repo.FindByEmail(context.Background(), "b@example.com")
	if err != nil {
		t.Fatalf("FindByEmail error: %v", err)
	}
	if p.ID != "id-2" || p.Tier != models.TierPro {
		t.Fatalf("unexpected principal: %+v", p)
	}
}

func TestFindByEmail_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(findQuery).WithArgs("missing@example.com").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByEmail(context.Background(), "missing@example.com")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected common.ErrorNotFound, got %v", err)
	}
}

const credQuery = `(?s)^UPDATE\s+profiles\s+SET\s+photo_account_id\s*=\s*\$2,\s*photo_api_key\s*=\s*\$3\s+WHERE\s+id\s*=\s*\$1\s*$`

func TestSetPhotoCredential_OK(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(credQuery).
		WithArgs("id-1", "acct-1", []byte("sealed")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SetPhotoCredential(context.Background(), "id-1", "acct-1", []byte("sealed")); err != nil {
		t.Fatalf("SetPhotoCredential error: %v", err)
	}
}

func TestSetPhotoCredential_MissingRow(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(credQuery).
		WithArgs("id-9", "acct-1", []byte("sealed")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetPhotoCredential(context.Background(), "id-9", "acct-1", []byte("sealed"))
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected common.ErrorNotFound, got %v", err)
	}
}
