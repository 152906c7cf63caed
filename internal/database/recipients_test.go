package database

import (
	"context"
	"testing"

	"cartrack-backend/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	return sqlx.NewDb(mockDB, "sqlmock"), mock
}

var recipientRowColumns = []string{"id", "user_id", "email", "name", "is_active", "created_at", "updated_at"}

func TestCreateRecipient_Success(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectExec(`INSERT INTO email_recipients`).
		WithArgs(sqlmock.AnyArg(), "user-1", "boss@example.com", "Boss", true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	recipient := &models.EmailRecipient{UserID: "user-1", Email: "boss@example.com", Name: "Boss", IsActive: true}
	require.NoError(t, CreateRecipient(context.Background(), db, recipient))

	assert.NotEmpty(t, recipient.ID)
	assert.NotZero(t, recipient.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRecipient_DuplicateRejected(t *testing.T) {
	db, mock := setupMockDB(t)
	ctx := context.Background()

	mock.ExpectExec(`INSERT INTO email_recipients`).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	mock.ExpectQuery(`SELECT .+ FROM email_recipients WHERE user_id = \$1 ORDER BY email`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows(recipientRowColumns).
			AddRow("rec-1", "user-1", "boss@example.com", "First Boss", true, int64(1), int64(1)))

	dup := &models.EmailRecipient{UserID: "user-1", Email: "boss@example.com", Name: "Other", IsActive: true}
	err := CreateRecipient(ctx, db, dup)
	assert.ErrorIs(t, err, ErrDuplicateRecipient)

	recipients, err := ListRecipients(ctx, db, "user-1")
	require.NoError(t, err)
	require.Len(t, recipients, 1)
	assert.Equal(t, "First Boss", recipients[0].Name, "existing recipient is not overwritten")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRecipient_OtherErrorsWrapped(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectExec(`INSERT INTO email_recipients`).
		WillReturnError(&pq.Error{Code: "23503", Message: "foreign key violation"})

	err := CreateRecipient(context.Background(), db, &models.EmailRecipient{UserID: "ghost", Email: "a@b.c"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicateRecipient)
	assert.Contains(t, err.Error(), "failed to create recipient")
}

func TestDeleteRecipient_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectExec(`DELETE FROM email_recipients`).
		WithArgs("rec-9", "user-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := DeleteRecipient(context.Background(), db, "rec-9", "user-1")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListActiveRecipientAddresses(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectQuery(`SELECT email FROM email_recipients WHERE user_id = \$1 AND is_active = TRUE`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"email"}).AddRow("a@example.com").AddRow("c@example.com"))

	addresses, err := ListActiveRecipientAddresses(context.Background(), db, "user-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a@example.com", "c@example.com"}, addresses)
	require.NoError(t, mock.ExpectationsWereMet())
}
