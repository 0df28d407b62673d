package models

import (
	"context"
	"errors"
	"html"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aurafoods/aura_backend/config"
	"github.com/aurafoods/aura_backend/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Profile struct {
	ID               int             `gorm:"primary_key" json:"id"`
	Email            string          `gorm:"size:100;not null;unique" json:"email" binding:"required"`
	Name             string          `gorm:"size:100;not null" json:"name" binding:"required"`
	Phone            string          `gorm:"size:20" json:"phone"`
	Password         string          `gorm:"size:255;not null" json:"-"`
	Role             ProfileRole     `gorm:"type:enum('customer','dealer','admin');default:'customer'" json:"role"`
	Credits          decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"credits"`
	AddressLine1     string          `gorm:"size:255" json:"address_line1"`
	AddressLine2     string          `gorm:"size:255" json:"address_line2"`
	City             string          `gorm:"size:100" json:"city"`
	State            string          `gorm:"size:100" json:"state"`
	PostalCode       string          `gorm:"size:20" json:"postal_code"`
	StripeCustomerId string          `gorm:"size:64;index" json:"stripe_customer_id"`
	IsActive         *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewProfile struct {
	Email    string `json:"email" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Phone    string `json:"phone"`
	Password string `json:"password" binding:"required,min=8"`
}

type ProfileUpdate struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postal_code"`
}

/*
caches:
	Profile:$email
	Tokens:$email (set of live session tokens)
	Token:$token -> email
*/

func (p Profile) RemoveInstanceRedis() error {
	return config.RemoveRedisKey("Profile:" + p.Email)
}

type LoginInfo struct {
	Token string      `json:"token"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Role  ProfileRole `json:"role"`
}

func (p *Profile) PrepareGive() {
	p.Password = ""
}

func Signup(ctx context.Context, input *NewProfile) (*Profile, error) {

	db := config.GetDB()
	var count int64

	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if !utils.IsValidEmail(input.Email) {
		return nil, errors.New("invalid email address")
	}
	if strings.TrimSpace(input.Phone) != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return nil, errors.New("invalid phone number")
		}
	}

	if err := db.WithContext(ctx).Model(&Profile{}).Where("email = ?", input.Email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("email already registered")
	}

	hashedPassword, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	profile := Profile{
		Email:    input.Email,
		Name:     html.EscapeString(strings.TrimSpace(input.Name)),
		Phone:    input.Phone,
		Password: string(hashedPassword),
		Role:     ProfileRoleCustomer,
		Credits:  decimal.Zero,
		IsActive: utils.NewTrue(),
	}

	if err := db.WithContext(ctx).Create(&profile).Error; err != nil {
		return nil, err
	}
	profile.Password = ""
	return &profile, nil
}

func Login(ctx context.Context, email string, password string) (*LoginInfo, error) {

	db := config.GetDB()
	email = strings.ToLower(strings.TrimSpace(email))

	profile := Profile{}

	exists, err := config.GetRedisObject("Profile:"+email, &profile)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := db.WithContext(ctx).Model(&Profile{}).Where("email = ?", email).Take(&profile).Error; err != nil {
			return nil, errors.New("invalid email or password")
		}
	}

	if err := utils.ComparePassword(profile.Password, password); err != nil {
		if err == bcrypt.ErrMismatchedHashAndPassword {
			return nil, errors.New("invalid email or password")
		}
		return nil, err
	}

	if profile.IsActive != nil && !*profile.IsActive {
		return nil, errors.New("account is disabled")
	}

	token := uuid.NewString()
	result := LoginInfo{
		Token: token,
		Name:  profile.Name,
		Email: profile.Email,
		Role:  profile.Role,
	}

	tokenLifespan, err := strconv.Atoi(os.Getenv("TOKEN_HOUR_LIFESPAN"))
	if err != nil {
		tokenLifespan = 24
	}

	// add new token to the profile's tokens set
	if err := config.AddRedisSet("Tokens:"+profile.Email, token); err != nil {
		return nil, err
	}
	if err := config.SetRedisValue("Token:"+token, profile.Email, time.Duration(tokenLifespan)*time.Hour); err != nil {
		return nil, err
	}

	return &result, nil
}

// destroy current session
func Logout(ctx context.Context) (bool, error) {
	token, ok := utils.GetTokenFromContext(ctx)
	if !ok || token == "" {
		return false, errors.New("token is required")
	}
	if err := config.RemoveRedisKey("Token:" + token); err != nil {
		return false, nil
	}
	email, ok := utils.GetEmailFromContext(ctx)
	if !ok || email == "" {
		return false, errors.New("session not found")
	}
	if err := config.RemoveRedisSetMember("Tokens:"+email, token); err != nil {
		return false, err
	}
	return true, nil
}

// GetProfileByEmail reads the cached profile, falling back to DB.
// Used by session/role middleware on every authenticated request.
func GetProfileByEmail(ctx context.Context, email string) (*Profile, error) {
	var profile Profile
	exists, err := config.GetRedisObject("Profile:"+email, &profile)
	if err != nil {
		return nil, err
	}
	if exists {
		return &profile, nil
	}

	db := config.GetDB()
	if db == nil {
		return nil, errors.New("db is nil")
	}
	if err := db.WithContext(ctx).Model(&Profile{}).Where("email = ?", email).Take(&profile).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	// cache for subsequent requests; invalidated on profile writes
	_ = config.SetRedisObject("Profile:"+email, &profile, time.Hour)
	return &profile, nil
}

func GetProfile(ctx context.Context, id int) (*Profile, error) {
	result, err := utils.FetchModel[Profile](ctx, id)
	if err != nil {
		return nil, err
	}
	result.PrepareGive()
	return result, nil
}

func UpdateProfile(ctx context.Context, id int, input *ProfileUpdate) (*Profile, error) {

	db := config.GetDB()

	profile, err := utils.FetchModel[Profile](ctx, id)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(input.Phone) != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return nil, errors.New("invalid phone number")
		}
	}

	if err := db.WithContext(ctx).Model(profile).Updates(map[string]interface{}{
		"Name":         input.Name,
		"Phone":        input.Phone,
		"AddressLine1": input.AddressLine1,
		"AddressLine2": input.AddressLine2,
		"City":         input.City,
		"State":        input.State,
		"PostalCode":   input.PostalCode,
	}).Error; err != nil {
		return nil, err
	}

	if err := profile.RemoveInstanceRedis(); err != nil {
		return nil, err
	}
	profile.PrepareGive()
	return profile, nil
}

func (p *Profile) DestroyAllSessions(ctx context.Context) error {
	allTokens, err := config.GetRedisSetMembers("Tokens:" + p.Email)
	if err != nil {
		return err
	}
	for _, token := range allTokens {
		if err := config.RemoveRedisKey("Token:" + token); err != nil {
			return err
		}
	}
	return config.RemoveRedisKey("Tokens:" + p.Email)
}

func ChangePassword(ctx context.Context, oldPassword string, newPassword string) (*Profile, error) {
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId == 0 {
		return nil, errors.New("user id is required")
	}

	var profile Profile
	db := config.GetDB()
	if err := db.WithContext(ctx).First(&profile, userId).Error; err != nil {
		return nil, err
	}
	if err := utils.ComparePassword(profile.Password, oldPassword); err != nil {
		return nil, errors.New("old password is wrong")
	}

	hashedPassword, err := utils.HashPassword(newPassword)
	if err != nil {
		return nil, err
	}

	if err := db.WithContext(ctx).Model(&profile).UpdateColumn("password", string(hashedPassword)).Error; err != nil {
		return nil, err
	}
	if err := profile.RemoveInstanceRedis(); err != nil {
		return nil, err
	}
	// destroying all session tokens
	if err := profile.DestroyAllSessions(ctx); err != nil {
		return nil, err
	}

	profile.PrepareGive()
	return &profile, nil
}

// AddProfileCredits is used by gift card redemption (inside the caller's tx).
func AddProfileCredits(ctx context.Context, tx *gorm.DB, profileId int, amount decimal.Decimal) error {
	return tx.WithContext(ctx).Model(&Profile{}).
		Where("id = ?", profileId).
		UpdateColumn("credits", gorm.Expr("credits + ?", amount)).Error
}
