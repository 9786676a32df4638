package tokens

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

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

const findQuery = `(?s)^SELECT\s+t\.id,\s*t\.user_id,\s*p\.email,\s*p\.role,\s*p\.tier,\s*t\.scopes,\s*t\.expires_at\s+FROM\s+api_tokens\s+t\s+JOIN\s+profiles\s+p\s+ON\s+p\.id\s*=\s*t\.user_id\s+WHERE\s+t\.hash\s*=\s*\$1\s*$`

func TestFindByHash_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	expires := time.Now().Add(time.Hour)
	rows := sqlmock.NewRows([]string{"id", "user_id", "email", "role", "tier", "scopes", "expires_at"}).
		AddRow("t-1", "u-1", "bot@example.com", "user", "pro", "gateway read", expires)
	mock.ExpectQuery(findQuery).WithArgs([]byte("hash")).WillReturnRows(rows)

	owner, err := repo.FindByHash(context.Background(), []byte("hash"))
	if err != nil {
		t.Fatalf("FindByHash error: %v", err)
	}
	if owner.TokenID != "t-1" || owner.Email != "bot@example.com" {
		t.Fatalf("unexpected owner: %+v", owner)
	}
	if owner.Tier != models.TierPro {
		t.Fatalf("unexpected tier: %v", owner.Tier)
	}
	if len(owner.Scopes) != 2 || owner.Scopes[0] != "gateway" {
		t.Fatalf("unexpected scopes: %v", owner.Scopes)
	}
	if owner.ExpiresAt == nil || !owner.ExpiresAt.Equal(expires) {
		t.Fatalf("unexpected expiry: %v", owner.ExpiresAt)
	}
}

func TestFindByHash_NoExpiry(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "user_id", "email", "role", "tier", "scopes", "expires_at"}).
		AddRow("t-2", "u-1", "bot@example.com", "user", "free", "", nil)
	mock.ExpectQuery(findQuery).WithArgs([]byte("hash")).WillReturnRows(rows)

	owner, err := repo.FindByHash(context.Background(), []byte("hash"))
	if err != nil {
		t.Fatalf("FindByHash error: %v", err)
	}
	if owner.ExpiresAt != nil {
		t.Fatalf("expected nil expiry, got %v", owner.ExpiresAt)
	}
	if len(owner.Scopes) != 0 {
		t.Fatalf("expected no scopes, got %v", owner.Scopes)
	}
}

func TestFindByHash_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(findQuery).WithArgs([]byte("nope")).WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByHash(context.Background(), []byte("nope"))
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected common.ErrorNotFound, got %v", err)
	}
}

func TestTouchLastUsed(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^UPDATE\s+api_tokens\s+SET\s+last_used_at\s*=\s*now\(\)\s+WHERE\s+id\s*=\s*\$1\s*$`).
		WithArgs("t-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.TouchLastUsed(context.Background(), "t-1"); err != nil {
		t.Fatalf("TouchLastUsed error: %v", err)
	}
}
