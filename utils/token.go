package utils

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dgrijalva/jwt-go"
)

// ServiceClaim identifies a machine caller of the inventory API
// (the external workflow-automation tool).
type ServiceClaim struct {
	Service string `json:"service"`
	Scope   string `json:"scope"`
	jwt.StandardClaims
}

var jwtSecret = []byte(getJwtSecret())

func getJwtSecret() string {
	secret := os.Getenv("API_SECRET")
	if secret == "" {
		return "Aura-Secret"
	}
	return secret
}

func ServiceTokenGenerate(service string, scope string) (string, error) {
	lifespan, err := strconv.Atoi(os.Getenv("TOKEN_HOUR_LIFESPAN"))
	if err != nil {
		lifespan = 24
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, &ServiceClaim{
		Service: service,
		Scope:   scope,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: time.Now().Add(time.Hour * time.Duration(lifespan)).Unix(),
			IssuedAt:  time.Now().Unix(),
		},
	})

	token, err := t.SignedString(jwtSecret)
	if err != nil {
		return "", err
	}

	return token, nil
}

func ServiceTokenValidate(token string) (*ServiceClaim, error) {
	parsed, err := jwt.ParseWithClaims(token, &ServiceClaim{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("there's a problem with the signing method")
		}
		return jwtSecret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("invalid service token")
	}
	claim, ok := parsed.Claims.(*ServiceClaim)
	if !ok {
		return nil, fmt.Errorf("invalid service token claims")
	}
	return claim, nil
}
