package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/coursemap-backend/internal/requestdata"
	"github.com/yungbote/coursemap-backend/internal/types"
)

type fakeUserTokenRepo struct {
	byAccess map[string]*types.UserToken
}

func newFakeUserTokenRepo() *fakeUserTokenRepo {
	return &fakeUserTokenRepo{byAccess: make(map[string]*types.UserToken)}
}

func (f *fakeUserTokenRepo) Create(ctx context.Context, tx *gorm.DB, userTokens []*types.UserToken) ([]*types.UserToken, error) {
	for _, tok := range userTokens {
		f.byAccess[tok.AccessToken] = tok
	}
	return userTokens, nil
}

func (f *fakeUserTokenRepo) GetByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) ([]*types.UserToken, error) {
	return nil, nil
}

func (f *fakeUserTokenRepo) GetByAccessTokens(ctx context.Context, tx *gorm.DB, accessTokens []string) ([]*types.UserToken, error) {
	out := []*types.UserToken{}
	for _, at := range accessTokens {
		if tok, ok := f.byAccess[at]; ok {
			out = append(out, tok)
		}
	}
	return out, nil
}

func (f *fakeUserTokenRepo) GetByRefreshTokens(ctx context.Context, tx *gorm.DB, refreshTokens []string) ([]*types.UserToken, error) {
	return nil, nil
}

func (f *fakeUserTokenRepo) DeleteByIDs(ctx context.Context, tx *gorm.DB, tokenIDs []uuid.UUID) error {
	return nil
}

func (f *fakeUserTokenRepo) DeleteByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []uuid.UUID) error {
	return nil
}

func TestSetContextFromToken_RoundTripsSubjectAndSession(t *testing.T) {
	tokenRepo := newFakeUserTokenRepo()
	svc := NewAuthService(nil, testLogger(t), nil, tokenRepo, "test-secret", time.Hour, 24*time.Hour)
	as := svc.(*authService)

	user := &types.User{ID: uuid.New()}
	tokenString, err := as.generateAccessToken(user)
	if err != nil {
		t.Fatalf("token generation failed: %v", err)
	}

	sessionID := uuid.New()
	tokenRepo.byAccess[tokenString] = &types.UserToken{
		ID:           sessionID,
		UserID:       user.ID,
		AccessToken:  tokenString,
		RefreshToken: "refresh-1",
	}

	ctx, err := svc.SetContextFromToken(context.Background(), tokenString)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rd := requestdata.GetRequestData(ctx)
	if rd == nil {
		t.Fatalf("no request data in context")
	}
	if rd.UserID != user.ID {
		t.Fatalf("wrong user id: want=%s got=%s", user.ID, rd.UserID)
	}
	if rd.SessionID != sessionID {
		t.Fatalf("wrong session id: want=%s got=%s", sessionID, rd.SessionID)
	}
	if rd.RefreshToken != "refresh-1" {
		t.Fatalf("wrong refresh token: %q", rd.RefreshToken)
	}
}

func TestSetContextFromToken_RejectsWrongSecret(t *testing.T) {
	tokenRepo := newFakeUserTokenRepo()
	signer := NewAuthService(nil, testLogger(t), nil, tokenRepo, "secret-a", time.Hour, 24*time.Hour).(*authService)
	verifier := NewAuthService(nil, testLogger(t), nil, tokenRepo, "secret-b", time.Hour, 24*time.Hour)

	tokenString, err := signer.generateAccessToken(&types.User{ID: uuid.New()})
	if err != nil {
		t.Fatalf("token generation failed: %v", err)
	}

	if _, err := verifier.SetContextFromToken(context.Background(), tokenString); err == nil {
		t.Fatalf("expected error for token signed with different secret")
	}
}

func TestSetContextFromToken_RejectsExpiredToken(t *testing.T) {
	tokenRepo := newFakeUserTokenRepo()
	svc := NewAuthService(nil, testLogger(t), nil, tokenRepo, "test-secret", -time.Minute, 24*time.Hour)
	as := svc.(*authService)

	tokenString, err := as.generateAccessToken(&types.User{ID: uuid.New()})
	if err != nil {
		t.Fatalf("token generation failed: %v", err)
	}

	if _, err := svc.SetContextFromToken(context.Background(), tokenString); err == nil {
		t.Fatalf("expected error for expired token")
	}
}
