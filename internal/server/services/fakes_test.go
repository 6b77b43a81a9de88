package services

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/idgate/internal/common"
	"github.com/dmitrijs2005/idgate/internal/dbx"
	"github.com/dmitrijs2005/idgate/internal/server/config"
	"github.com/dmitrijs2005/idgate/internal/server/models"
	"github.com/dmitrijs2005/idgate/internal/server/repositories/documents"
	"github.com/dmitrijs2005/idgate/internal/server/repositories/users"
	"github.com/dmitrijs2005/idgate/internal/server/storage"
	"github.com/google/uuid"
)

// --- in-memory repositories ---

type memUsers struct {
	mu   sync.Mutex
	byID map[string]*models.User

	createErr    error
	markErr      error
	markVerified int
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[string]*models.User{}}
}

func (m *memUsers) Create(ctx context.Context, u *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	for _, existing := range m.byID {
		if existing.Email == u.Email {
			return nil, common.ErrorConflict
		}
	}
	cp := *u
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	cp.CreatedAt = time.Now()
	m.byID[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (m *memUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) MarkVerified(ctx context.Context, id, proofReference string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markVerified++
	if m.markErr != nil {
		return m.markErr
	}
	u, ok := m.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.IdentityVerified = true
	ref := proofReference
	u.ProofReference = &ref
	return nil
}

func (m *memUsers) countEmail(email string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, u := range m.byID {
		if u.Email == email {
			n++
		}
	}
	return n
}

type memDocuments struct {
	mu        sync.Mutex
	docs      []*models.Document
	createErr error
	listErr   error
}

func (m *memDocuments) Create(ctx context.Context, d *models.Document) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	cp := *d
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	m.docs = append(m.docs, &cp)
	out := cp
	return &out, nil
}

func (m *memDocuments) ListByUserID(ctx context.Context, userID string) ([]*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := []*models.Document{}
	for _, d := range m.docs {
		if d.UserID == userID {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt.Before(out[j].UploadedAt) })
	return out, nil
}

func (m *memDocuments) GetByID(ctx context.Context, userID, id string) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.docs {
		if d.ID == id && d.UserID == userID {
			cp := *d
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (m *memDocuments) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs)
}

type fakeRepoManager struct {
	users     *memUsers
	documents *memDocuments
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{users: newMemUsers(), documents: &memDocuments{}}
}

func (f *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (f *fakeRepoManager) Users(dbx.DBTX) users.Repository             { return f.users }
func (f *fakeRepoManager) Documents(dbx.DBTX) documents.Repository     { return f.documents }

// --- object store ---

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	deleted []string

	putErr     error
	deleteErr  error
	presignErr error
	block      bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (s *fakeStore) PutObject(ctx context.Context, in storage.PutObjectInput) error {
	if s.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if s.putErr != nil {
		return s.putErr
	}
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[in.Bucket+"/"+in.Key] = b
	s.types[in.Bucket+"/"+in.Key] = in.ContentType
	return nil
}

func (s *fakeStore) DeleteObject(ctx context.Context, bucket, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, bucket+"/"+key)
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.objects, bucket+"/"+key)
	return nil
}

func (s *fakeStore) PresignGetObject(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	if s.presignErr != nil {
		return "", s.presignErr
	}
	return fmt.Sprintf("https://store.local/%s/%s?ttl=%d", bucket, key, int(ttl.Seconds())), nil
}

func (s *fakeStore) EnsureBucket(ctx context.Context, bucket string) error { return nil }

func (s *fakeStore) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.objects))
	for k := range s.objects {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// --- credentials ---

type plainHasher struct{ err error }

func (h plainHasher) Hash(pw string) (string, error) {
	if h.err != nil {
		return "", h.err
	}
	return "hashed:" + pw, nil
}

func (h plainHasher) Verify(hash, pw string) bool {
	return hash == "hashed:"+pw
}

type fakeIssuer struct {
	err    error
	issued []*models.User
}

func (f *fakeIssuer) Issue(u *models.User) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.issued = append(f.issued, u)
	return "token-" + u.ID, nil
}

// --- helpers ---

func testConfig() *config.Config {
	return &config.Config{
		S3ProofBucket:           "users",
		S3DocumentBucket:        "user-files",
		S3Timeout:               time.Second,
		PresignValidityDuration: 15 * time.Minute,
		MaxUploadBytes:          1 << 20,
	}
}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

func photo(content string) *File {
	return &File{
		Name:        "selfie.png",
		ContentType: "image/png",
		Size:        int64(len(content)),
		Content:     strings.NewReader(content),
	}
}

func pdf(content string) *File {
	return &File{
		Name:        "payslip.pdf",
		ContentType: "application/pdf",
		Size:        int64(len(content)),
		Content:     bytes.NewReader([]byte(content)),
	}
}

func mustKind(t *testing.T, err error, kind error) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v, got nil", kind)
	}
	if !errors.Is(err, kind) {
		t.Fatalf("expected %v, got %v", kind, err)
	}
	var f *common.Failure
	if !errors.As(err, &f) {
		t.Fatalf("expected *common.Failure, got %T", err)
	}
}
