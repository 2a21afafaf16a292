package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const initDataKeySeed = "WebAppData"

var (
	ErrInitDataMissing   = errors.New("init data missing")
	ErrBotTokenMissing   = errors.New("bot token not configured")
	ErrInitDataInvalid   = errors.New("init data signature invalid")
	ErrInitDataExpired   = errors.New("init data expired")
	ErrInvalidUserData   = errors.New("invalid user data")
	errMalformedInitData = errors.New("malformed init data")
)

// InitDataPair is one key/value entry of a mini-app launch payload.
type InitDataPair struct {
	Key   string
	Value string
}

// InitData is a launch payload in the order the client sent it. Duplicate keys are kept.
type InitData []InitDataPair

// Get returns the first value stored under key.
func (d InitData) Get(key string) (string, bool) {
	for _, p := range d {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

func (d InitData) count(key string) int {
	n := 0
	for _, p := range d {
		if p.Key == key {
			n++
		}
	}
	return n
}

// Encode renders the pairs back into a query string, preserving order.
func (d InitData) Encode() string {
	parts := make([]string, 0, len(d))
	for _, p := range d {
		parts = append(parts, url.QueryEscape(p.Key)+"="+url.QueryEscape(p.Value))
	}
	return strings.Join(parts, "&")
}

// TelegramUser is the caller identity carried by a verified payload.
type TelegramUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
}

// IDString returns the user id in the form admin ids are configured in.
func (u TelegramUser) IDString() string {
	return strconv.FormatInt(u.ID, 10)
}

// ParseInitData splits a URL-query encoded payload into ordered pairs.
func ParseInitData(raw string) (InitData, error) {
	var pairs InitData
	for _, part := range strings.Split(raw, "&") {
		if part == "" {
			continue
		}
		key, value, _ := strings.Cut(part, "=")
		k, err := url.QueryUnescape(key)
		if err != nil {
			return nil, fmt.Errorf("%w: key %q: %v", errMalformedInitData, key, err)
		}
		v, err := url.QueryUnescape(value)
		if err != nil {
			return nil, fmt.Errorf("%w: value of %q: %v", errMalformedInitData, k, err)
		}
		pairs = append(pairs, InitDataPair{Key: k, Value: v})
	}
	return pairs, nil
}

func initDataSecret(botToken string) []byte {
	mac := hmac.New(sha256.New, []byte(initDataKeySeed))
	mac.Write([]byte(botToken))
	return mac.Sum(nil)
}

func checkString(pairs InitData) string {
	lines := make([]string, 0, len(pairs))
	for _, p := range pairs {
		if p.Key == "hash" {
			continue
		}
		lines = append(lines, p.Key+"="+p.Value)
	}
	sort.Strings(lines)
	return strings.Join(lines, "\n")
}

// SignInitData returns the hex digest a client shell would attach as `hash`.
// Any existing `hash` pair is ignored.
func SignInitData(pairs InitData, botToken string) string {
	mac := hmac.New(sha256.New, initDataSecret(botToken))
	mac.Write([]byte(checkString(pairs)))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyInitData reports whether the payload carries exactly one `hash` equal to the digest
// of every other pair under botToken.
func VerifyInitData(pairs InitData, botToken string) bool {
	if pairs.count("hash") != 1 {
		return false
	}
	hash, _ := pairs.Get("hash")
	expected := SignInitData(pairs, botToken)
	return hmac.Equal([]byte(expected), []byte(hash))
}

type rawTelegramUser struct {
	ID        *int64 `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
}

// ParseTelegramUser decodes the `user` field of a verified payload.
func ParseTelegramUser(pairs InitData) (TelegramUser, error) {
	value, ok := pairs.Get("user")
	if !ok || strings.TrimSpace(value) == "" {
		return TelegramUser{}, ErrInvalidUserData
	}

	raw, err := decodeUser(value)
	if err != nil {
		unescaped, uerr := url.PathUnescape(value)
		if uerr != nil || unescaped == value {
			return TelegramUser{}, fmt.Errorf("%w: %v", ErrInvalidUserData, err)
		}
		if raw, err = decodeUser(unescaped); err != nil {
			return TelegramUser{}, fmt.Errorf("%w: %v", ErrInvalidUserData, err)
		}
	}

	if raw.ID == nil {
		return TelegramUser{}, fmt.Errorf("%w: id is required", ErrInvalidUserData)
	}

	return TelegramUser{
		ID:        *raw.ID,
		FirstName: raw.FirstName,
		LastName:  raw.LastName,
		Username:  raw.Username,
	}, nil
}

func decodeUser(value string) (rawTelegramUser, error) {
	var raw rawTelegramUser
	err := json.Unmarshal([]byte(value), &raw)
	return raw, err
}

// InitDataValidator checks launch payloads against one bot token.
type InitDataValidator struct {
	botToken string
	maxAge   time.Duration
	now      func() time.Time
}

// NewInitDataValidator builds a validator. A zero maxAge disables the auth_date check.
func NewInitDataValidator(botToken string, maxAge time.Duration) *InitDataValidator {
	return &InitDataValidator{botToken: botToken, maxAge: maxAge, now: time.Now}
}

// Validate verifies raw and returns the caller it identifies.
func (v *InitDataValidator) Validate(raw string) (TelegramUser, error) {
	if strings.TrimSpace(raw) == "" {
		return TelegramUser{}, ErrInitDataMissing
	}
	if v.botToken == "" {
		return TelegramUser{}, ErrBotTokenMissing
	}

	pairs, err := ParseInitData(raw)
	if err != nil {
		return TelegramUser{}, fmt.Errorf("%w: %v", ErrInitDataInvalid, err)
	}
	if !VerifyInitData(pairs, v.botToken) {
		return TelegramUser{}, ErrInitDataInvalid
	}

	if v.maxAge > 0 {
		authDate, ok := pairs.Get("auth_date")
		if !ok {
			return TelegramUser{}, ErrInitDataExpired
		}
		unix, err := strconv.ParseInt(authDate, 10, 64)
		if err != nil {
			return TelegramUser{}, fmt.Errorf("%w: auth_date %q", ErrInitDataInvalid, authDate)
		}
		if v.now().Sub(time.Unix(unix, 0)) > v.maxAge {
			return TelegramUser{}, ErrInitDataExpired
		}
	}

	return ParseTelegramUser(pairs)
}
