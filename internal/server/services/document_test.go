package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/idgate/internal/common"
	"github.com/dmitrijs2005/idgate/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type documentFixture struct {
	svc   *DocumentService
	rm    *fakeRepoManager
	store *fakeStore
	user  *models.User
}

func newDocumentFixture(t *testing.T, opts ...Option) *documentFixture {
	t.Helper()
	db, _ := newMockDB(t)
	rm := newFakeRepoManager()
	store := newFakeStore()

	u, err := rm.users.Create(context.Background(), &models.User{Email: "a@x.com", UserName: "alice", PasswordHash: "h"})
	require.NoError(t, err)

	return &documentFixture{
		svc:   NewDocumentService(db, rm, store, testConfig(), opts...),
		rm:    rm,
		store: store,
		user:  u,
	}
}

func TestDocument_UploadAndList(t *testing.T) {
	ts := time.Date(2024, 5, 2, 8, 30, 0, 0, time.UTC)
	f := newDocumentFixture(t, WithClock(fixedClock(ts)))
	ctx := context.Background()

	res, err := f.svc.Upload(ctx, f.user.ID, pdf("%PDF-1.7"), models.DocumentTypePayslip)
	require.NoError(t, err)
	assert.Equal(t, "document uploaded successfully", res.Message)
	assert.Equal(t, models.DocumentTypePayslip, res.Document.Type)
	assert.Equal(t, models.DocumentStatusPending, res.Document.Status)
	assert.Equal(t, fmt.Sprintf("documents/%s/payslip_%d", f.user.ID, ts.UnixMilli()), res.Document.StorageKey)
	assert.Equal(t, ts, res.Document.UploadedAt)
	assert.Equal(t, 1, f.rm.documents.count())
	assert.Equal(t, []string{"user-files/" + res.Document.StorageKey}, f.store.keys())

	list, err := f.svc.ListByUser(ctx, f.user.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, res.Document.StorageKey, list[0].StorageKey)
	assert.Equal(t, res.Document.ID, list[0].ID)
	assert.Equal(t, models.DocumentStatusPending, list[0].Status)
}

func TestDocument_UploadKeysUniqueWithinSameInstant(t *testing.T) {
	f := newDocumentFixture(t, WithClock(fixedClock(time.Unix(1700000000, 0))))

	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		res, err := f.svc.Upload(context.Background(), f.user.ID, pdf("x"), models.DocumentTypeTaxDeclaration)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(res.Document.StorageKey, "documents/"+f.user.ID+"/tax_declaration_"))
		assert.False(t, seen[res.Document.StorageKey])
		seen[res.Document.StorageKey] = true
	}

	list, err := f.svc.ListByUser(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Len(t, list, 5)
}

func TestDocument_UploadUnknownUser(t *testing.T) {
	f := newDocumentFixture(t)

	_, err := f.svc.Upload(context.Background(), "5d3c1f0e-8f5b-4a57-bc43-0f3d1f7f4a11", pdf("x"), models.DocumentTypePayslip)
	mustKind(t, err, common.ErrorNotFound)

	_, err = f.svc.Upload(context.Background(), "42", pdf("x"), models.DocumentTypePayslip)
	mustKind(t, err, common.ErrorNotFound)

	assert.Zero(t, f.rm.documents.count())
	assert.Empty(t, f.store.keys())
}

func TestDocument_UploadInvalidInput(t *testing.T) {
	f := newDocumentFixture(t)

	_, err := f.svc.Upload(context.Background(), f.user.ID, pdf(""), models.DocumentTypePayslip)
	mustKind(t, err, common.ErrorInvalidInput)
	assert.Equal(t, "file is required", common.MessageOf(err))

	_, err = f.svc.Upload(context.Background(), f.user.ID, nil, models.DocumentTypePayslip)
	mustKind(t, err, common.ErrorInvalidInput)

	_, err = f.svc.Upload(context.Background(), f.user.ID, pdf("x"), models.DocumentType("OTHER"))
	mustKind(t, err, common.ErrorInvalidInput)

	big := pdf("x")
	big.Size = 4 << 20
	_, err = f.svc.Upload(context.Background(), f.user.ID, big, models.DocumentTypePayslip)
	mustKind(t, err, common.ErrorInvalidInput)

	assert.Zero(t, f.rm.documents.count())
}

func TestDocument_UploadStoreFailureCreatesNoRow(t *testing.T) {
	f := newDocumentFixture(t)
	f.store.putErr = errors.New("503 slow down")

	_, err := f.svc.Upload(context.Background(), f.user.ID, pdf("x"), models.DocumentTypeLoanPayments)
	mustKind(t, err, common.ErrorUploadFailed)
	assert.Zero(t, f.rm.documents.count())

	list, err := f.svc.ListByUser(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestDocument_UploadCommitFailureRemovesObject(t *testing.T) {
	f := newDocumentFixture(t)
	f.rm.documents.createErr = errors.New("db error")

	_, err := f.svc.Upload(context.Background(), f.user.ID, pdf("x"), models.DocumentTypePayslip)
	mustKind(t, err, common.ErrorInternal)
	assert.Len(t, f.store.deleted, 1)
	assert.Empty(t, f.store.keys())
}

func TestDocument_UploadCommitFailureCleanupError(t *testing.T) {
	f := newDocumentFixture(t)
	f.rm.documents.createErr = errors.New("db error")
	f.store.deleteErr = errors.New("denied")

	_, err := f.svc.Upload(context.Background(), f.user.ID, pdf("x"), models.DocumentTypePayslip)
	mustKind(t, err, common.ErrorInternal)
	assert.Len(t, f.store.keys(), 1)
}

func TestDocument_ListEmpty(t *testing.T) {
	f := newDocumentFixture(t)

	list, err := f.svc.ListByUser(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	list, err = f.svc.ListByUser(context.Background(), "0f8fad5b-d9cb-469f-a165-70867728950e")
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = f.svc.ListByUser(context.Background(), "garbage")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestDocument_ListError(t *testing.T) {
	f := newDocumentFixture(t)
	f.rm.documents.listErr = errors.New("select failed")

	_, err := f.svc.ListByUser(context.Background(), f.user.ID)
	mustKind(t, err, common.ErrorInternal)
}

func TestDocument_PresignDownload(t *testing.T) {
	f := newDocumentFixture(t)
	ctx := context.Background()

	res, err := f.svc.Upload(ctx, f.user.ID, pdf("x"), models.DocumentTypePayslip)
	require.NoError(t, err)

	link, err := f.svc.PresignDownload(ctx, f.user.ID, res.Document.ID)
	require.NoError(t, err)
	assert.Contains(t, link.URL, res.Document.StorageKey)
	assert.True(t, link.ExpiresAt.After(time.Now()))

	other, err := f.rm.users.Create(ctx, &models.User{Email: "b@x.com", UserName: "bob", PasswordHash: "h"})
	require.NoError(t, err)
	_, err = f.svc.PresignDownload(ctx, other.ID, res.Document.ID)
	mustKind(t, err, common.ErrorNotFound)

	f.store.presignErr = errors.New("no creds")
	_, err = f.svc.PresignDownload(ctx, f.user.ID, res.Document.ID)
	mustKind(t, err, common.ErrorInternal)
}
