package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/idgate/internal/client/api"
	"github.com/dmitrijs2005/idgate/internal/client/config"
	"github.com/dmitrijs2005/idgate/internal/client/session"
)

// Service is the part of the REST client the CLI uses.
type Service interface {
	Register(ctx context.Context, email, username, password string) (*api.RegisterResponse, error)
	Login(ctx context.Context, email, password string) (*api.LoginResponse, error)
	VerifyIdentity(ctx context.Context, userID, path string) (*api.VerifyResponse, error)
	Upload(ctx context.Context, userID, docType, path string) (*api.UploadResponse, error)
	ListDocuments(ctx context.Context, userID string) ([]api.Document, error)
	DownloadLink(ctx context.Context, token, documentID string) (*api.DownloadResponse, error)
}

// SessionStore remembers the login between runs.
type SessionStore interface {
	Load(ctx context.Context) (*session.Session, error)
	Save(ctx context.Context, s *session.Session) error
	Clear(ctx context.Context) error
}

type App struct {
	config  *config.Config
	service Service
	store   SessionStore
	session session.Session
	reader  *bufio.Reader
	out     io.Writer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	store, err := session.Open(ctx, c.SessionPath)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	return &App{
		config:  c,
		service: api.New(c.ServerURL, c.RequestTimeout),
		store:   store,
		reader:  bufio.NewReader(os.Stdin),
		out:     os.Stdout,
	}, nil
}

// Run restores a previous login, if any, and starts the REPL on stdin.
func (a *App) Run(ctx context.Context) {
	if a.store != nil {
		if s, err := a.store.Load(ctx); err != nil {
			printlnFn("warning: cannot restore session:", err)
		} else if s != nil {
			a.session = *s
		}
	}

	printlnFn("idgate CLI (type 'help' for commands)")
	runREPL(ctx, a, a.status, a.reader)
}

func (a *App) isLoggedIn() bool {
	return a.session.UserID != ""
}

func (a *App) status() string {
	if !a.isLoggedIn() {
		return ""
	}
	if a.session.IdentityVerified {
		return fmt.Sprintf("(%s verified) ", a.session.UserName)
	}
	return fmt.Sprintf("(%s unverified) ", a.session.UserName)
}

// persist saves the session; failures only cost the user a re-login.
func (a *App) persist(ctx context.Context) {
	if a.store == nil {
		return
	}
	if err := a.store.Save(ctx, &a.session); err != nil {
		printlnFn("warning: cannot save session:", err)
	}
}

// report prints err in a user-friendly way and returns it.
func (a *App) report(err error) error {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		printlnFn("error:", apiErr.Message)
	} else {
		printlnFn("error:", err)
	}
	return err
}

func (a *App) ask(prompt string) (string, error) {
	return GetSimpleText(a.reader, prompt, a.out)
}

var errNotLoggedIn = errors.New("login first")

func (a *App) Register(ctx context.Context) error {
	email, err := a.ask("-Enter email")
	if err != nil {
		return a.report(err)
	}
	username, err := a.ask("-Enter user name")
	if err != nil {
		return a.report(err)
	}
	password, err := GetPassword(a.out)
	if err != nil {
		return a.report(err)
	}

	res, err := a.service.Register(ctx, email, username, password)
	if err != nil {
		return a.report(err)
	}

	printlnFn("Registered, id:", res.ID)
	printlnFn("Log in and run 'verify' to unlock your account.")
	return nil
}

func (a *App) Login(ctx context.Context) error {
	email, err := a.ask("-Enter email")
	if err != nil {
		return a.report(err)
	}
	password, err := GetPassword(a.out)
	if err != nil {
		return a.report(err)
	}

	res, err := a.service.Login(ctx, email, password)
	if err != nil {
		return a.report(err)
	}

	a.session = session.Session{UserID: res.ID, UserName: res.Username, IdentityVerified: res.IdentityVerified}
	if res.Token != nil {
		a.session.Token = *res.Token
	}
	a.persist(ctx)

	printlnFn(res.Message)
	if res.VerificationRequired {
		printlnFn("Run 'verify' to submit an identity-proof photo.")
	}
	return nil
}

func (a *App) Verify(ctx context.Context) error {
	if !a.isLoggedIn() {
		return a.report(errNotLoggedIn)
	}
	path, err := a.ask("-Path to identity-proof photo")
	if err != nil {
		return a.report(err)
	}

	res, err := a.service.VerifyIdentity(ctx, a.session.UserID, path)
	if err != nil {
		return a.report(err)
	}

	a.session.IdentityVerified = res.IdentityVerified
	a.session.Token = res.Token
	a.persist(ctx)
	printlnFn(res.Message)
	return nil
}

func (a *App) Upload(ctx context.Context) error {
	if !a.isLoggedIn() {
		return a.report(errNotLoggedIn)
	}
	docType, err := a.ask("-Document type (payslip, tax-declaration, income-consistency, loan-payments, business-registration, business-income-declaration)")
	if err != nil {
		return a.report(err)
	}
	path, err := a.ask("-Path to file")
	if err != nil {
		return a.report(err)
	}

	res, err := a.service.Upload(ctx, a.session.UserID, docType, path)
	if err != nil {
		return a.report(err)
	}

	printlnFn(fmt.Sprintf("%s: %s (%s)", res.Message, res.Type, res.Status))
	return nil
}

func (a *App) List(ctx context.Context) error {
	if !a.isLoggedIn() {
		return a.report(errNotLoggedIn)
	}

	docs, err := a.service.ListDocuments(ctx, a.session.UserID)
	if err != nil {
		return a.report(err)
	}

	if len(docs) == 0 {
		printlnFn("No documents.")
		return nil
	}

	var b strings.Builder
	for _, d := range docs {
		fmt.Fprintf(&b, "%s  %-28s %-9s %s\n", d.ID, d.Type, d.Status, d.UploadedAt.Local().Format("2006-01-02 15:04:05"))
	}
	printlnFn(strings.TrimRight(b.String(), "\n"))
	return nil
}

func (a *App) Download(ctx context.Context, documentID string) error {
	if !a.isLoggedIn() {
		return a.report(errNotLoggedIn)
	}
	if a.session.Token == "" {
		return a.report(errors.New("identity not verified, run 'verify' first"))
	}

	res, err := a.service.DownloadLink(ctx, a.session.Token, documentID)
	if err != nil {
		return a.report(err)
	}

	printlnFn(res.URL)
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	a.session = session.Session{}
	if a.store != nil {
		if err := a.store.Clear(ctx); err != nil {
			return a.report(err)
		}
	}
	printlnFn("Logged out")
	return nil
}
