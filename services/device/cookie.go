package device

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	CookieName   = "device_restriction_id"
	CookieMaxAge = 3 * 365 * 24 * 60 * 60

	tokenContextKey = "deviceCookieToken"

	// Session tokens held in memory expire after fallbackTTL and at most
	// fallbackLimit sessions are tracked at once.
	fallbackTTL   = 30 * time.Minute
	fallbackLimit = 10000
)

type fallbackToken struct {
	token   string
	expires time.Time
}

// CookieStore issues the long-lived device correlation token.
type CookieStore struct {
	// SecureMode is "true", "false" or "auto" (secure when the request arrived over HTTPS).
	SecureMode string
	Now        func() time.Time

	mu       sync.Mutex
	fallback map[string]fallbackToken
}

func NewCookieStore(secureMode string) *CookieStore {
	return &CookieStore{
		SecureMode: secureMode,
		Now:        time.Now,
		fallback:   make(map[string]fallbackToken),
	}
}

// GetOrCreateToken returns the device token for the request, issuing one if none exists.
// It never fails: when the cookie cannot be written the token lives in memory for the session.
func (s *CookieStore) GetOrCreateToken(c *gin.Context) string {
	v, seen := c.Get(tokenContextKey)
	if token, _ := v.(string); token != "" {
		return token
	}
	key := sessionKey(c)
	// A token cleared earlier in this request must not be read back from the request cookie.
	if !seen {
		if token, err := c.Cookie(CookieName); err == nil && token != "" {
			s.forget(key)
			c.Set(tokenContextKey, token)
			return token
		}
	}

	token, ok := s.remembered(key)
	if !ok {
		token = s.newToken()
	}
	if c.Writer.Written() {
		if !ok {
			s.remember(key, token)
		}
	} else {
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(CookieName, token, CookieMaxAge, "/", "", s.secure(c), false)
		if ok {
			s.forget(key)
		}
	}
	c.Set(tokenContextKey, token)
	return token
}

func (s *CookieStore) remembered(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.fallback[key]
	if !ok {
		return "", false
	}
	if !s.now().Before(entry.expires) {
		delete(s.fallback, key)
		return "", false
	}
	return entry.token, true
}

// remember drops expired sessions first. When the table is still full the token
// is not kept, so the session gets a fresh one on its next request.
func (s *CookieStore) remember(key, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if len(s.fallback) >= fallbackLimit {
		for k, entry := range s.fallback {
			if !now.Before(entry.expires) {
				delete(s.fallback, k)
			}
		}
		if len(s.fallback) >= fallbackLimit {
			return
		}
	}
	s.fallback[key] = fallbackToken{token: token, expires: now.Add(fallbackTTL)}
}

func (s *CookieStore) forget(key string) {
	s.mu.Lock()
	delete(s.fallback, key)
	s.mu.Unlock()
}

// Clear expires the cookie and forgets any in-memory token for the session.
func (s *CookieStore) Clear(c *gin.Context) {
	s.forget(sessionKey(c))
	c.Set(tokenContextKey, "")
	if !c.Writer.Written() {
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(CookieName, "", -1, "/", "", s.secure(c), false)
	}
}

func (s *CookieStore) secure(c *gin.Context) bool {
	switch s.SecureMode {
	case "true":
		return true
	case "false":
		return false
	}
	return c.Request.TLS != nil || strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https")
}

// newToken is the issue time in base36 followed by three random segments.
func (s *CookieStore) newToken() string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.Join([]string{
		strconv.FormatInt(s.now().UnixMilli(), 36),
		random[0:8],
		random[16:24],
		random[24:32],
	}, "-")
}

func (s *CookieStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func sessionKey(c *gin.Context) string {
	return c.ClientIP() + "|" + c.Request.UserAgent()
}
