package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/idgate/internal/common"
	"github.com/dmitrijs2005/idgate/internal/dbx"
	"github.com/dmitrijs2005/idgate/internal/logging"
	"github.com/dmitrijs2005/idgate/internal/server/config"
	"github.com/dmitrijs2005/idgate/internal/server/metrics"
	"github.com/dmitrijs2005/idgate/internal/server/models"
	"github.com/dmitrijs2005/idgate/internal/server/passwords"
	"github.com/dmitrijs2005/idgate/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/idgate/internal/server/storage"
)

const (
	msgRegistered           = "user registered successfully"
	msgEmailExists          = "email already exists"
	msgUserNotFound         = "user not found"
	msgInvalidCredentials   = "invalid credentials"
	msgVerificationRequired = "identity verification required"
	msgLoginSuccessful      = "login successful"
	msgProofRequired        = "proof is required"
	msgIdentityVerified     = "identity verified successfully"
	msgUploadFailed         = "failed to store file"
	msgInternal             = "internal error"
)

type RegisterResult struct {
	ID               string
	IdentityVerified bool
	Message          string
}

// LoginResult is returned for every authenticated login. Token is empty and
// VerificationRequired is set while the identity is unverified.
type LoginResult struct {
	ID                   string
	Email                string
	UserName             string
	IdentityVerified     bool
	VerificationRequired bool
	Token                string
	Message              string
}

type VerifyResult struct {
	ID               string
	IdentityVerified bool
	ProofReference   string
	Token            string
	Message          string
}

// IdentityService is the only component that decides whether a user gets a
// token: registration and login never mint one for an unverified identity.
type IdentityService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      passwords.Hasher
	tokens      TokenIssuer
	writer      *stagedWriter
	clock       *stampClock
	bucket      string
	maxBytes    int64
	logger      logging.Logger
	metrics     *metrics.Metrics
}

func NewIdentityService(db *sql.DB, m repomanager.RepositoryManager, store storage.ObjectStore,
	hasher passwords.Hasher, tokens TokenIssuer, cfg *config.Config, opts ...Option) *IdentityService {

	o := buildOptions(opts)
	logger := o.logger.With("service", "identity")

	return &IdentityService{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		tokens:      tokens,
		writer:      &stagedWriter{store: store, timeout: cfg.S3Timeout, logger: logger},
		clock:       newStampClock(o.now),
		bucket:      cfg.S3ProofBucket,
		maxBytes:    cfg.MaxUploadBytes,
		logger:      logger,
		metrics:     o.metrics,
	}
}

// Register creates an unverified user. A duplicate email fails with
// common.ErrorConflict and writes nothing.
func (s *IdentityService) Register(ctx context.Context, email, username, password string) (res *RegisterResult, err error) {
	defer func() { s.metrics.Registration(resultLabel(err)) }()

	email = strings.TrimSpace(email)
	username = strings.TrimSpace(username)

	switch {
	case email == "":
		return nil, common.NewFailure(common.ErrorInvalidInput, "email is required", nil)
	case username == "":
		return nil, common.NewFailure(common.ErrorInvalidInput, "username is required", nil)
	case password == "":
		return nil, common.NewFailure(common.ErrorInvalidInput, "password is required", nil)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, common.NewFailure(common.ErrorInternal, msgInternal, fmt.Errorf("hash password: %w", err))
	}

	var created *models.User

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		_, err := repo.GetByEmail(ctx, email)
		if err == nil {
			return common.ErrorConflict
		}
		if !errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("lookup by email: %w", err)
		}

		created, err = repo.Create(ctx, &models.User{
			Email:        email,
			UserName:     username,
			PasswordHash: hash,
		})
		return err
	})

	if err != nil {
		if errors.Is(err, common.ErrorConflict) {
			return nil, common.NewFailure(common.ErrorConflict, msgEmailExists, nil)
		}
		s.logger.Error(ctx, "register failed", "error", err)
		return nil, common.NewFailure(common.ErrorInternal, msgInternal, err)
	}

	s.logger.Info(ctx, "user registered", "user_id", created.ID)

	return &RegisterResult{ID: created.ID, IdentityVerified: created.IdentityVerified, Message: msgRegistered}, nil
}

// Login checks credentials. An unverified user authenticates successfully
// but receives no token.
func (s *IdentityService) Login(ctx context.Context, email, password string) (res *LoginResult, err error) {
	defer func() { s.metrics.Login(resultLabel(err)) }()

	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, common.NewFailure(common.ErrorInvalidInput, "email and password are required", nil)
	}

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NewFailure(common.ErrorNotFound, msgUserNotFound, nil)
		}
		s.logger.Error(ctx, "login lookup failed", "error", err)
		return nil, common.NewFailure(common.ErrorInternal, msgInternal, err)
	}

	if !s.hasher.Verify(user.PasswordHash, password) {
		return nil, common.NewFailure(common.ErrorUnauthorized, msgInvalidCredentials, nil)
	}

	res = &LoginResult{
		ID:               user.ID,
		Email:            user.Email,
		UserName:         user.UserName,
		IdentityVerified: user.IdentityVerified,
	}

	if !user.IdentityVerified {
		res.VerificationRequired = true
		res.Message = msgVerificationRequired
		return res, nil
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, common.NewFailure(common.ErrorInternal, msgInternal, fmt.Errorf("issue token: %w", err))
	}

	res.Token = token
	res.Message = msgLoginSuccessful

	return res, nil
}

// VerifyIdentity stores the proof photo and, only once it is durably
// stored, marks the user verified and mints a token. A failed store write
// leaves the user row untouched. Re-verifying overwrites the reference.
func (s *IdentityService) VerifyIdentity(ctx context.Context, userID string, proof *File) (res *VerifyResult, err error) {
	defer func() { s.metrics.Verification(resultLabel(err)) }()

	if !wellFormedID(userID) {
		return nil, common.NewFailure(common.ErrorNotFound, msgUserNotFound, nil)
	}

	users := s.repomanager.Users(s.db)

	user, err := users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NewFailure(common.ErrorNotFound, msgUserNotFound, nil)
		}
		return nil, common.NewFailure(common.ErrorInternal, msgInternal, err)
	}

	if proof.empty() {
		return nil, common.NewFailure(common.ErrorInvalidInput, msgProofRequired, nil)
	}
	if s.maxBytes > 0 && proof.Size > s.maxBytes {
		return nil, common.NewFailure(common.ErrorInvalidInput, fmt.Sprintf("proof exceeds %d bytes", s.maxBytes), nil)
	}

	_, stamp := s.clock.Next()
	key := ProofKey(user.ID, stamp, proofExtension(proof.Name, proof.ContentType))

	err = s.writer.write(ctx, storage.PutObjectInput{
		Bucket:      s.bucket,
		Key:         key,
		ContentType: proof.ContentType,
		Size:        proof.Size,
		Body:        proof.Content,
	}, func(ctx context.Context) error {
		return users.MarkVerified(ctx, user.ID, key)
	})

	if err != nil {
		if errors.Is(err, common.ErrorUploadFailed) {
			s.logger.Error(ctx, "proof upload failed", "user_id", user.ID, "key", key, "error", err)
			return nil, common.NewFailure(common.ErrorUploadFailed, msgUploadFailed, err)
		}
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NewFailure(common.ErrorNotFound, msgUserNotFound, nil)
		}
		s.logger.Error(ctx, "mark verified failed", "user_id", user.ID, "error", err)
		return nil, common.NewFailure(common.ErrorInternal, msgInternal, err)
	}

	user.IdentityVerified = true
	user.ProofReference = &key

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, common.NewFailure(common.ErrorInternal, msgInternal, fmt.Errorf("issue token: %w", err))
	}

	s.logger.Info(ctx, "identity verified", "user_id", user.ID, "key", key)

	return &VerifyResult{
		ID:               user.ID,
		IdentityVerified: true,
		ProofReference:   key,
		Token:            token,
		Message:          msgIdentityVerified,
	}, nil
}
