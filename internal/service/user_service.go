// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"social-feed-go/internal/model"
	"social-feed-go/internal/repository"
	"social-feed-go/pkg/hash"
	"social-feed-go/pkg/log"
	"social-feed-go/pkg/token"

	"gorm.io/gorm"
)

const minPasswordLength = 6

// TokenPair 是登录、注册和刷新接口返回的一对 token。
type TokenPair struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

// ProfileUpdate 描述 PATCH /users/me 的可选字段，nil 表示不修改。
type ProfileUpdate struct {
	Username  *string
	AvatarURL *string
}

// UserService 接口定义了所有与用户和认证相关的业务操作。
type UserService interface {
	Register(username, password string) (TokenPair, error)
	Login(username, password string) (TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	GetProfile(userID uint) (*model.User, error)
	UpdateProfile(userID uint, update ProfileUpdate) (*model.User, error)
	UpdateAvatar(ctx context.Context, userID uint, image ImageUpload) (*model.User, error)
}

// userService 是 UserService 接口的实现。
type userService struct {
	userRepo   repository.UserRepository
	tokenRepo  repository.TokenRepository
	uploads    UploadService
	jwtManager *token.JWTManager
}

// NewUserService 创建一个新的 UserService 实例。
func NewUserService(userRepo repository.UserRepository, tokenRepo repository.TokenRepository, uploads UploadService, jwtManager *token.JWTManager) UserService {
	return &userService{
		userRepo:   userRepo,
		tokenRepo:  tokenRepo,
		uploads:    uploads,
		jwtManager: jwtManager,
	}
}

// Register 处理用户注册的业务逻辑，成功后直接签发 token。
func (s *userService) Register(username, password string) (TokenPair, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return TokenPair{}, fmt.Errorf("%w: username and password are required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		return TokenPair{}, fmt.Errorf("%w: password must be at least %d chars", ErrInvalidInput, minPasswordLength)
	}

	// 1. 检查用户名是否已存在
	_, err := s.userRepo.FindByUsername(username)
	if err == nil {
		return TokenPair{}, ErrUsernameTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return TokenPair{}, err
	}

	// 2. 对密码进行哈希处理
	hashedPassword, err := hash.HashPassword(password)
	if err != nil {
		return TokenPair{}, err
	}

	// 3. 将用户存入数据库以生成ID
	newUser := &model.User{Username: username, Password: hashedPassword}
	if err := s.userRepo.Create(newUser); err != nil {
		log.Errorf("[UserService] 创建用户失败, username: %s, error: %v", username, err)
		return TokenPair{}, err
	}

	log.Infof("[UserService] 用户注册成功, userID: %d, username: %s", newUser.ID, username)
	return s.issue(newUser.ID, newUser.Username)
}

// Login 处理用户登录的业务逻辑。
func (s *userService) Login(username, password string) (TokenPair, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return TokenPair{}, fmt.Errorf("%w: username and password are required", ErrInvalidInput)
	}

	user, err := s.userRepo.FindByUsername(username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return TokenPair{}, ErrInvalidCredentials
		}
		return TokenPair{}, err
	}

	if !hash.CheckPasswordHash(password, user.Password) {
		return TokenPair{}, ErrInvalidCredentials
	}

	return s.issue(user.ID, user.Username)
}

// RefreshToken 校验 refresh token 并轮换：旧 token 被拉黑，返回一对新的 token。
func (s *userService) RefreshToken(ctx context.Context, refreshToken string) (TokenPair, error) {
	if refreshToken == "" {
		return TokenPair{}, fmt.Errorf("%w: refreshToken is required", ErrInvalidInput)
	}
	claims, err := s.jwtManager.VerifyRefreshToken(refreshToken)
	if err != nil {
		return TokenPair{}, ErrInvalidRefreshToken
	}

	revoked, err := s.tokenRepo.IsRevoked(ctx, claims.ID)
	if err != nil {
		return TokenPair{}, err
	}
	if revoked {
		return TokenPair{}, ErrRevokedRefreshToken
	}

	user, err := s.userRepo.FindByID(claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return TokenPair{}, ErrInvalidRefreshToken
		}
		return TokenPair{}, err
	}

	if err := s.tokenRepo.Revoke(ctx, claims.ID, time.Until(claims.ExpiresAt.Time)); err != nil {
		return TokenPair{}, err
	}
	return s.issue(user.ID, user.Username)
}

// Logout 将 refresh token 加入黑名单，token 本身已失效时直接视为成功。
func (s *userService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return fmt.Errorf("%w: refreshToken is required", ErrInvalidInput)
	}
	claims, err := s.jwtManager.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil
	}
	// token 的剩余有效期将作为 Redis key 的过期时间。
	return s.tokenRepo.Revoke(ctx, claims.ID, time.Until(claims.ExpiresAt.Time))
}

// GetProfile 根据用户 ID 获取用户详细信息。
func (s *userService) GetProfile(userID uint) (*model.User, error) {
	return s.userRepo.FindByID(userID)
}

// UpdateProfile 修改用户名或头像地址。
func (s *userService) UpdateProfile(userID uint, update ProfileUpdate) (*model.User, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return nil, err
	}

	if update.Username != nil {
		username := strings.TrimSpace(*update.Username)
		if username == "" {
			return nil, fmt.Errorf("%w: invalid username", ErrInvalidInput)
		}
		if username != user.Username {
			existing, err := s.userRepo.FindByUsername(username)
			if err == nil && existing.ID != user.ID {
				return nil, ErrUsernameTaken
			}
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
		}
		user.Username = username
	}
	if update.AvatarURL != nil {
		user.AvatarURL = strings.TrimSpace(*update.AvatarURL)
	}

	if err := s.userRepo.Update(user); err != nil {
		log.Errorf("[UserService] 更新用户信息失败, userID: %d, error: %v", userID, err)
		return nil, err
	}
	return user, nil
}

// UpdateAvatar 上传头像到对象存储并更新用户头像地址。
func (s *userService) UpdateAvatar(ctx context.Context, userID uint, image ImageUpload) (*model.User, error) {
	url, err := s.uploads.UploadImage(ctx, ImageKindAvatar, image)
	if err != nil {
		return nil, err
	}
	return s.UpdateProfile(userID, ProfileUpdate{AvatarURL: &url})
}

func (s *userService) issue(userID uint, username string) (TokenPair, error) {
	access, err := s.jwtManager.GenerateToken(userID, username)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.jwtManager.GenerateRefreshToken(userID, username)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Token: access, RefreshToken: refresh}, nil
}
