package webserver

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/ltyyb/surveybot/src/data/store"
	"github.com/ltyyb/surveybot/src/logging"
	"github.com/ltyyb/surveybot/src/shared/survey"
)

type Users struct {
	users *store.Users
	key   *rsa.PrivateKey
	log   zerolog.Logger
}

func NewUsers(users *store.Users, key *rsa.PrivateKey) Users {
	return Users{users: users, key: key, log: logging.For("api")}
}

type registration struct {
	UserID     string `json:"userId"`
	ExternalID string `json:"externalId"`
}

// Register binds a user ID to a chat identity. The body is a base64 string
// (bare or JSON-quoted) of an RSA PKCS#1 v1.5 encrypted registration document.
func (u Users) Register(c *gin.Context) {
	if u.key == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"err": "registration disabled"})
		return
	}
	body, err := c.GetRawData()
	if err != nil || len(strings.TrimSpace(string(body))) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"err": "encrypted payload required"})
		return
	}

	reg, err := decryptRegistration(u.key, body)
	if err != nil {
		u.log.Warn().Err(err).Msg("register: rejected payload")
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	if err := u.users.RegisterWithID(c, reg.UserID, reg.ExternalID); err != nil {
		u.log.Error().Err(err).Str("user", reg.UserID).Msg("register failed")
		c.JSON(http.StatusInternalServerError, gin.H{"err": "failed to register user"})
		return
	}
	u.log.Info().Str("user", reg.UserID).Str("external", reg.ExternalID).Msg("user registered")
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func decryptRegistration(key *rsa.PrivateKey, body []byte) (registration, error) {
	var reg registration

	payload := strings.TrimSpace(string(body))
	var quoted string
	if err := json.Unmarshal([]byte(payload), &quoted); err == nil {
		payload = quoted
	}
	cipher, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return reg, errors.New("payload is not base64")
	}
	plain, err := rsa.DecryptPKCS1v15(rand.Reader, key, cipher)
	if err != nil {
		return reg, errors.New("decryption failed")
	}
	if err := json.Unmarshal(plain, &reg); err != nil {
		return reg, errors.New("decrypted data is not valid JSON")
	}
	reg.UserID = strings.TrimSpace(reg.UserID)
	reg.ExternalID = strings.TrimSpace(reg.ExternalID)
	if reg.UserID == "" || reg.ExternalID == "" || len(reg.UserID) > survey.ResponseIDLength {
		return reg, errors.New("invalid user data")
	}
	return reg, nil
}

// Check reports whether a user ID is registered and verified.
func (u Users) Check(c *gin.Context) {
	user, err := u.users.ByID(c, c.Param("userId"))
	if err != nil {
		if store.IsNotFound(err) {
			c.JSON(http.StatusOK, gin.H{"exists": false, "verified": false})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"err": "user lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"exists": true, "verified": user.IsVerified})
}

// LoadPrivateKey reads a PEM encoded RSA key in PKCS#1 or PKCS#8 form.
func LoadPrivateKey(path string) (*rsa.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rsa key: %w", err)
	}
	return ParsePrivateKey(raw)
}

func ParsePrivateKey(raw []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, errors.New("rsa key: no PEM block")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("rsa key: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("rsa key: not an RSA key")
	}
	return key, nil
}
