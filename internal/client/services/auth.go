package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/inventaire/internal/client/client"
	"github.com/dmitrijs2005/inventaire/internal/client/models"
	"github.com/dmitrijs2005/inventaire/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/inventaire/internal/cryptox"
	"github.com/dmitrijs2005/inventaire/internal/dbx"
	"github.com/golang-jwt/jwt/v5"
)

// TokenStore keeps the session token in the metadata table. It is the
// client.TokenSource of the transport.
type TokenStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ client.TokenSource = (*TokenStore)(nil)

func NewTokenStore(db *sql.DB) *TokenStore {
	return &TokenStore{db: db, now: time.Now}
}

// AccessToken returns the stored token, or "" when there is none or it has
// expired. Tokens that are not JWTs are treated as opaque and never expire
// locally.
func (s *TokenStore) AccessToken(ctx context.Context) (string, error) {
	token, err := metadata.NewSQLiteRepository(s.db).GetString(ctx, metadata.KeyAccessToken)
	if err != nil || token == "" {
		return "", err
	}
	if tokenExpired(token, s.now()) {
		return "", nil
	}
	return token, nil
}

func tokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !exp.After(now)
}

// Save persists token and username together.
func (s *TokenStore) Save(ctx context.Context, username, token string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.SetString(ctx, metadata.KeyUsername, username); err != nil {
			return err
		}
		return repo.SetString(ctx, metadata.KeyAccessToken, token)
	})
}

func (s *TokenStore) Clear(ctx context.Context) error {
	return metadata.NewSQLiteRepository(s.db).Delete(ctx, metadata.KeyAccessToken)
}

// AuthService handles the session (login/logout) and the group PIN gate.
//
//   - Login exchanges credentials for a token and stores it.
//   - SetToken stores a token obtained elsewhere.
//   - UnlockGroup checks a group PIN against the offline cache and
//     remembers the group; UnlockedGroup returns it.
type AuthService interface {
	Login(ctx context.Context, username, password string) error
	Logout(ctx context.Context) error
	SetToken(ctx context.Context, username, token string) error
	IsAuthenticated(ctx context.Context) (bool, error)
	Username(ctx context.Context) (string, error)
	UnlockGroup(ctx context.Context, groupID, pin string) (*models.Group, error)
	UnlockedGroup(ctx context.Context) (*models.Group, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

type authService struct {
	client client.Client
	db     *sql.DB
	tokens *TokenStore
	cache  *ReferenceCache
}

func NewAuthService(client client.Client, db *sql.DB, tokens *TokenStore, cache *ReferenceCache) AuthService {
	return &authService{client: client, db: db, tokens: tokens, cache: cache}
}

func (a *authService) getMetadataRepo() metadata.Repository {
	return metadata.NewSQLiteRepository(a.db)
}

func (a *authService) Login(ctx context.Context, username, password string) error {
	token, err := a.client.Login(ctx, username, password)
	if err != nil {
		return fmt.Errorf("login error: %w", err)
	}
	if err := a.tokens.Save(ctx, username, token); err != nil {
		return fmt.Errorf("token saving error: %w", err)
	}
	return nil
}

func (a *authService) SetToken(ctx context.Context, username, token string) error {
	return a.tokens.Save(ctx, username, token)
}

// Logout forgets the token and the unlocked group. Scans are kept.
func (a *authService) Logout(ctx context.Context) error {
	if err := a.tokens.Clear(ctx); err != nil {
		return err
	}
	return a.getMetadataRepo().Delete(ctx, metadata.KeyUnlockedGroup)
}

func (a *authService) IsAuthenticated(ctx context.Context) (bool, error) {
	token, err := a.tokens.AccessToken(ctx)
	return token != "", err
}

func (a *authService) Username(ctx context.Context) (string, error) {
	return a.getMetadataRepo().GetString(ctx, metadata.KeyUsername)
}

func (a *authService) UnlockGroup(ctx context.Context, groupID, pin string) (*models.Group, error) {
	g, ok := a.cache.Group(groupID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGroup, groupID)
	}
	if !cryptox.VerifyPIN(g.ID, pin, g.PINHash) {
		return nil, ErrInvalidPIN
	}
	if err := a.getMetadataRepo().SetString(ctx, metadata.KeyUnlockedGroup, g.ID); err != nil {
		return nil, err
	}
	return &g, nil
}

// UnlockedGroup returns nil, nil when no group is unlocked or the unlocked
// group vanished from the reference data.
func (a *authService) UnlockedGroup(ctx context.Context) (*models.Group, error) {
	id, err := a.getMetadataRepo().GetString(ctx, metadata.KeyUnlockedGroup)
	if err != nil || id == "" {
		return nil, err
	}
	g, ok := a.cache.Group(id)
	if !ok {
		return nil, nil
	}
	return &g, nil
}

func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

func (a *authService) Close(ctx context.Context) error {
	return a.client.Close()
}
