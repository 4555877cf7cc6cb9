package database

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/impressaovipjames-spec/hybrid-nexus-render/internal/entity"
)

func setupTestDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

var leadCols = []string{"id", "nome", "email", "telefone", "status", "fonte", "captured_at", "notas", "sync_source", "original_id", "updated_at"}

// ============ TESTES DE LEAD REPOSITORY ============

func TestLeadRepository_Create(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewLeadRepository(db, "")
	ts := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO leads")).
		WithArgs("l1", "Ana", "ana@x.com", "11900000000", "novo", "landing_page", ts, "", "", "", ts).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Create(context.Background(), &entity.Lead{
		ID: "l1", Nome: "Ana", Email: "ana@x.com", Telefone: "11900000000",
		Status: entity.StatusNovo, Fonte: "landing_page", Timestamp: ts, UpdatedAt: ts,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeadRepository_FindByID(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewLeadRepository(db, "")
	ts := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM leads WHERE id = $1")).
		WithArgs("l1").
		WillReturnRows(sqlmock.NewRows(leadCols).
			AddRow("l1", "Ana", "ana@x.com", "11900000000", "qualificado", "landing_page", ts, "vip", "", "", ts))

	lead, err := repo.FindByID(context.Background(), "l1")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusQualificado, lead.Status)
	assert.Equal(t, "vip", lead.Notas)

	mock.ExpectQuery(regexp.QuoteMeta("FROM leads WHERE id = $1")).
		WithArgs("nada").
		WillReturnError(sql.ErrNoRows)

	_, err = repo.FindByID(context.Background(), "nada")
	assert.ErrorIs(t, err, entity.ErrLeadNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeadRepository_UpdateNotFound(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewLeadRepository(db, "")

	mock.ExpectExec(regexp.QuoteMeta("UPDATE leads SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &entity.Lead{ID: "x"})
	assert.ErrorIs(t, err, entity.ErrLeadNotFound)
}

func TestLeadRepository_ListAndCounts(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewLeadRepository(db, "")
	ts := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM leads ORDER BY captured_at DESC")).
		WillReturnRows(sqlmock.NewRows(leadCols).
			AddRow("l2", "Bia", "bia@x.com", "11911111111", "novo", "instagram", ts.Add(time.Hour), "", "", "", ts).
			AddRow("l1", "Ana", "ana@x.com", "11900000000", "novo", "landing_page", ts, "", "", "", ts))

	leads, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, leads, 2)
	assert.Equal(t, "l2", leads[0].ID)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM leads")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY status")).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).AddRow("novo", 2))
	byStatus, err := repo.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, byStatus[entity.StatusNovo])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecodeNotification(t *testing.T) {
	change, err := decodeNotification(`{"op":"update","id":"l1","lead":{"id":"l1","nome":"Ana","email":"ana@x.com","telefone":"1","status":"vendido","fonte":"x","timestamp":"2025-03-10T12:00:00+00:00","notas":"","sync_source":"","original_id":"","updated_at":"2025-03-10T13:00:00.123456+00:00"}}`)
	require.NoError(t, err)
	assert.Equal(t, entity.ChangeUpdate, change.Op)
	require.NotNil(t, change.Lead)
	assert.Equal(t, entity.StatusVendido, change.Lead.Status)
	assert.Equal(t, time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC), change.Lead.Timestamp)

	del, err := decodeNotification(`{"op":"delete","id":"l1"}`)
	require.NoError(t, err)
	assert.Equal(t, entity.ChangeDelete, del.Op)
	assert.Nil(t, del.Lead)

	_, err = decodeNotification(`nada`)
	assert.Error(t, err)
}

func TestMigrate_RunsAllStatements(t *testing.T) {
	db, mock := setupTestDB(t)
	for range migrations {
		mock.ExpectExec(".*").WillReturnResult(sqlmock.NewResult(0, 0))
	}
	require.NoError(t, Migrate(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ============ TESTES DE ADMIN REPOSITORY ============

func TestAdminRepository_CreateDuplicate(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewAdminRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO admin_users")).
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &entity.AdminUser{ID: "a1", Email: "adm@x.com"})
	assert.ErrorIs(t, err, entity.ErrAdminExists)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO admin_users")).
		WillReturnError(errors.New("conexão perdida"))
	err = repo.Create(context.Background(), &entity.AdminUser{ID: "a2", Email: "b@x.com"})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, entity.ErrAdminExists)
}

func TestAdminRepository_FindByEmail(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewAdminRepository(db)
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM admin_users WHERE email = $1")).
		WithArgs("adm@x.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "name", "password_hash", "created_at"}).
			AddRow("a1", "adm@x.com", "Admin", "$2a$10$hash", created))

	a, err := repo.FindByEmail(context.Background(), "adm@x.com")
	require.NoError(t, err)
	assert.Equal(t, "$2a$10$hash", a.PasswordHash)

	mock.ExpectQuery(regexp.QuoteMeta("FROM admin_users WHERE email = $1")).
		WithArgs("nada@x.com").
		WillReturnError(sql.ErrNoRows)
	_, err = repo.FindByEmail(context.Background(), "nada@x.com")
	assert.ErrorIs(t, err, entity.ErrAdminNotFound)
}

// ============ TESTES DE CHANGE FEED ============

type stubListener struct {
	notify   chan *pq.Notification
	listened []string
	pingErr  error
	closed   bool
}

func (l *stubListener) Listen(channel string) error {
	l.listened = append(l.listened, channel)
	return nil
}
func (l *stubListener) NotificationChannel() <-chan *pq.Notification { return l.notify }
func (l *stubListener) Ping() error                                   { return l.pingErr }
func (l *stubListener) Close() error {
	l.closed = true
	return nil
}

func watchWithStub(t *testing.T) (*LeadRepository, *stubListener, chan pq.EventCallbackType) {
	t.Helper()
	db, _ := setupTestDB(t)
	stub := &stubListener{notify: make(chan *pq.Notification)}
	callbacks := make(chan pq.EventCallbackType, 1)

	repo := NewLeadRepository(db, "postgres://local")
	repo.newListener = func(connString string, onEvent pq.EventCallbackType) changeListener {
		callbacks <- onEvent
		return stub
	}
	return repo, stub, callbacks
}

func TestWatch_DisconnectEndsFeed(t *testing.T) {
	repo, stub, callbacks := watchWithStub(t)

	var got []entity.LeadChange
	done := make(chan error, 1)
	go func() {
		done <- repo.Watch(context.Background(), func(c entity.LeadChange) { got = append(got, c) })
	}()

	onEvent := <-callbacks
	stub.notify <- &pq.Notification{Extra: `{"op":"delete","id":"l1"}`}
	onEvent(pq.ListenerEventDisconnected, errors.New("connection reset by peer"))

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection reset by peer")
	case <-time.After(time.Second):
		t.Fatal("watch não encerrou após queda do listener")
	}
	assert.Equal(t, []string{LeadChangesChannel}, stub.listened)
	assert.True(t, stub.closed)
	require.Len(t, got, 1)
	assert.Equal(t, entity.ChangeDelete, got[0].Op)
}

func TestWatch_ReconnectGapEndsFeed(t *testing.T) {
	repo, stub, callbacks := watchWithStub(t)

	done := make(chan error, 1)
	go func() { done <- repo.Watch(context.Background(), func(entity.LeadChange) {}) }()

	<-callbacks
	stub.notify <- nil

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("watch ignorou a reconexão")
	}
}

func TestWatch_CancelStopsWithoutError(t *testing.T) {
	repo, _, callbacks := watchWithStub(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- repo.Watch(ctx, func(entity.LeadChange) {}) }()

	onEvent := <-callbacks
	// eventos que não indicam falha são ignorados
	onEvent(pq.ListenerEventConnected, nil)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("watch não respeitou o cancelamento")
	}
}
