package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"

	"github.com/yamadatarousan/ec-sub001/internal/domain/model"
	repo "github.com/yamadatarousan/ec-sub001/internal/repository"
	"github.com/yamadatarousan/ec-sub001/internal/usecase"
)

const testJWTSecret = "test-secret"

func newAuthUsecase() (*usecase.AuthUsecase, *UserRepoMock) {
	users := new(UserRepoMock)
	return usecase.NewAuthUsecase(users, testJWTSecret), users
}

func parseTestToken(t *testing.T, raw string) jwt.MapClaims {
	t.Helper()

	token, err := jwt.Parse(raw, func(tk *jwt.Token) (interface{}, error) {
		return []byte(testJWTSecret), nil
	})
	assert.NoError(t, err)
	assert.True(t, token.Valid)

	claims, ok := token.Claims.(jwt.MapClaims)
	assert.True(t, ok)
	return claims
}

func TestAuthUsecase_Register_InvalidEmail(t *testing.T) {
	uc, _ := newAuthUsecase()

	_, err := uc.Register(context.Background(), usecase.RegisterInput{Email: "not-an-email", Password: "password123"})
	assertErrContains(t, err, "invalid email")
}

func TestAuthUsecase_Register_PasswordTooShort(t *testing.T) {
	uc, _ := newAuthUsecase()

	_, err := uc.Register(context.Background(), usecase.RegisterInput{Email: "taro@example.com", Password: "short"})
	assertErrContains(t, err, "at least 8")
}

func TestAuthUsecase_Register_EmailAlreadyExists(t *testing.T) {
	uc, users := newAuthUsecase()

	users.On("FindByEmail", mock.Anything, "taro@example.com").Return(&model.User{ID: 1}, nil)

	_, err := uc.Register(context.Background(), usecase.RegisterInput{Email: "taro@example.com", Password: "password123"})
	assertErrContains(t, err, "already registered")

	users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAuthUsecase_Register_Success(t *testing.T) {
	uc, users := newAuthUsecase()

	users.On("FindByEmail", mock.Anything, "taro@example.com").Return(nil, repo.ErrNotFound)
	users.On("Create", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
		//平文は保存しない
		return u.Email == "taro@example.com" &&
			u.Role == model.RoleUser &&
			u.IsActive &&
			u.PasswordHash != "password123"
	})).Run(func(args mock.Arguments) {
		u := args.Get(1).(*model.User)
		u.ID = 42
	}).Return(nil)

	out, err := uc.Register(context.Background(), usecase.RegisterInput{Email: "Taro@Example.com", Password: "password123"})
	assert.NoError(t, err)
	assert.Equal(t, int64(42), out.User.ID)
	assert.Equal(t, "taro@example.com", out.User.Email)
	assert.Equal(t, "USER", out.User.Role)

	claims := parseTestToken(t, out.Token)
	assert.Equal(t, "42", claims["sub"])
	assert.Equal(t, "USER", claims["role"])
}

func TestAuthUsecase_Login_UnknownEmail(t *testing.T) {
	uc, users := newAuthUsecase()

	users.On("FindByEmail", mock.Anything, "taro@example.com").Return(nil, repo.ErrNotFound)

	_, err := uc.Login(context.Background(), usecase.LoginInput{Email: "taro@example.com", Password: "password123"})
	//存在有無は漏らさない
	assertErrContains(t, err, "invalid credentials")
}

func TestAuthUsecase_Login_WrongPassword(t *testing.T) {
	uc, users := newAuthUsecase()

	hash, _ := bcrypt.GenerateFromPassword([]byte("correct-password"), bcrypt.MinCost)
	users.On("FindByEmail", mock.Anything, "taro@example.com").Return(&model.User{
		ID: 1, Email: "taro@example.com", PasswordHash: string(hash), IsActive: true,
	}, nil)

	_, err := uc.Login(context.Background(), usecase.LoginInput{Email: "taro@example.com", Password: "wrong-password"})
	assertErrContains(t, err, "invalid credentials")
}

func TestAuthUsecase_Login_InactiveUser(t *testing.T) {
	uc, users := newAuthUsecase()

	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	users.On("FindByEmail", mock.Anything, "taro@example.com").Return(&model.User{
		ID: 1, Email: "taro@example.com", PasswordHash: string(hash), IsActive: false,
	}, nil)

	_, err := uc.Login(context.Background(), usecase.LoginInput{Email: "taro@example.com", Password: "password123"})
	assertErrContains(t, err, "invalid credentials")
}

func TestAuthUsecase_Login_Success(t *testing.T) {
	uc, users := newAuthUsecase()

	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	users.On("FindByEmail", mock.Anything, "admin@example.com").Return(&model.User{
		ID: 7, Email: "admin@example.com", PasswordHash: string(hash), Role: model.RoleAdmin, IsActive: true,
	}, nil)

	//ログイン時刻が記録される
	users.On("Update", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
		return u.ID == 7 && u.LastLoginAt != nil && time.Since(*u.LastLoginAt) < time.Minute
	})).Return(nil)

	out, err := uc.Login(context.Background(), usecase.LoginInput{Email: "admin@example.com", Password: "password123"})
	assert.NoError(t, err)
	assert.Equal(t, "ADMIN", out.User.Role)

	claims := parseTestToken(t, out.Token)
	assert.Equal(t, "7", claims["sub"])
	assert.Equal(t, "ADMIN", claims["role"])

	//expはiatより先
	iat, _ := claims["iat"].(float64)
	exp, _ := claims["exp"].(float64)
	assert.Greater(t, exp, iat)

	users.AssertExpectations(t)
}
