package middleware

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SessionConfig configures the Redis-backed session cookie.
type SessionConfig struct {
	Secret            string
	AllowCrossSiteDev bool
	IsProduction      bool
}

const (
	SessionCookieName  = "certhub.sid"
	SessionRedisPrefix = "session:"
	UserSessionsPrefix = "user_sessions:"
	sessionMaxAge      = 24 * time.Hour

	sessionLocal = "session"
)

// SessionUser is stored in the session under "user".
type SessionUser struct {
	UserID   string `json:"user_id"`
	Fullname string `json:"fullname"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

type sessionState struct {
	id   string
	data map[string]interface{}
}

// NewRedis parses a redis:// URL into a client.
func NewRedis(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opt), nil
}

// cookieSessionID accepts "s:<id>", "s:<id>.<signature>" and bare ids.
func cookieSessionID(raw string) string {
	if strings.HasPrefix(raw, "s:") {
		raw = strings.SplitN(raw[2:], ".", 2)[0]
	}
	return raw
}

// Session loads the session from Redis before the handler and writes it back,
// with a fresh TTL, after a successful one.
func Session(rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		st := &sessionState{id: cookieSessionID(c.Cookies(SessionCookieName))}
		if st.id != "" {
			if b, err := rdb.Get(c.UserContext(), SessionRedisPrefix+st.id).Bytes(); err == nil {
				_ = json.Unmarshal(b, &st.data)
			}
		}
		if st.data == nil {
			st.data = map[string]interface{}{}
		}
		c.Locals(sessionLocal, st)
		c.Locals(userLocal, st.data["user"])

		if err := c.Next(); err != nil {
			return err
		}
		if st.id == "" || len(st.data) == 0 {
			return nil
		}
		b, _ := json.Marshal(st.data)
		ctx := context.Background()
		_, _ = rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, SessionRedisPrefix+st.id, b, sessionMaxAge)
			if actor, ok := GetActor(c); ok {
				p.Expire(ctx, UserSessionsPrefix+actor.UserID.String(), sessionMaxAge)
			}
			return nil
		})
		return nil
	}
}

func session(c *fiber.Ctx) *sessionState {
	if st, ok := c.Locals(sessionLocal).(*sessionState); ok {
		return st
	}
	st := &sessionState{data: map[string]interface{}{}}
	c.Locals(sessionLocal, st)
	return st
}

func GetSessionID(c *fiber.Ctx) string {
	return session(c).id
}

// SetSessionUser stores user in the session. Call RegenerateSessionID first.
func SetSessionUser(c *fiber.Ctx, user SessionUser) {
	st := session(c)
	st.data["user"] = map[string]interface{}{
		"user_id":  user.UserID,
		"fullname": user.Fullname,
		"email":    user.Email,
		"role":     user.Role,
	}
	c.Locals(userLocal, st.data["user"])
}

// RegenerateSessionID gives the request a new session id so a login never
// reuses an id chosen before authentication.
func RegenerateSessionID(c *fiber.Ctx) string {
	st := session(c)
	st.id = uuid.New().String()
	return st.id
}

// DestroySession clears the in-request session. The caller removes the Redis
// key and the cookie.
func DestroySession(c *fiber.Ctx) {
	st := session(c)
	st.data = map[string]interface{}{}
	c.Locals(userLocal, nil)
}

// TrackUserSession indexes sid under the user so it can be revoked later.
func TrackUserSession(ctx context.Context, rdb *redis.Client, userID uuid.UUID, sid string) error {
	key := UserSessionsPrefix + userID.String()
	_, err := rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.SAdd(ctx, key, sid)
		p.Expire(ctx, key, sessionMaxAge)
		return nil
	})
	return err
}

func UntrackUserSession(ctx context.Context, rdb *redis.Client, userID uuid.UUID, sid string) error {
	return rdb.SRem(ctx, UserSessionsPrefix+userID.String(), sid).Err()
}

// RevokeUserSessions deletes every session of the user and returns how many
// were indexed.
func RevokeUserSessions(ctx context.Context, rdb *redis.Client, userID uuid.UUID) (int, error) {
	key := UserSessionsPrefix + userID.String()
	sids, err := rdb.SMembers(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	keys := make([]string, 0, len(sids)+1)
	for _, sid := range sids {
		keys = append(keys, SessionRedisPrefix+sid)
	}
	keys = append(keys, key)
	if err := rdb.Del(ctx, keys...).Err(); err != nil {
		return 0, err
	}
	return len(sids), nil
}

func SessionCookieConfig(cfg SessionConfig) fiber.Cookie {
	sameSite := fiber.CookieSameSiteLaxMode
	if cfg.AllowCrossSiteDev {
		sameSite = fiber.CookieSameSiteNoneMode
	}
	return fiber.Cookie{
		Name:     SessionCookieName,
		Path:     "/",
		MaxAge:   int(sessionMaxAge.Seconds()),
		HTTPOnly: true,
		Secure:   cfg.IsProduction || cfg.AllowCrossSiteDev,
		SameSite: sameSite,
	}
}
