package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/clanktank/judge-engine/internal/audit"
	"github.com/clanktank/judge-engine/internal/store"
	"github.com/clanktank/judge-engine/pkg/models"
)

// ──────────────────────────────────────────────────────────────────
// Discord OAuth + bearer token authentication
//
// A bearer token is accepted in two forms: a session token this engine
// minted itself after a successful OAuth exchange (validated locally,
// no network round trip), or a raw Discord access token (validated by
// calling Discord's /users/@me, same as the original backend). A
// configured TEST_AUTH_TOKEN is accepted only outside production.
// ──────────────────────────────────────────────────────────────────

const sessionTokenTTL = 24 * time.Hour

// discordAPIBase is overridable in tests.
var discordAPIBase = "https://discord.com/api"

// sessionClaims is the JWT payload for an engine-minted session token.
type sessionClaims struct {
	DiscordID string `json:"discord_id"`
	Username  string `json:"username"`
	jwt.RegisteredClaims
}

// Auth bundles Discord OAuth config and the session-signing key.
type Auth struct {
	clientID     string
	clientSecret string
	redirectURI  string
	botToken     string
	guildID      string
	signingKey   []byte
	testToken    string
	production   bool

	store      *store.Store
	audit      *audit.Log
	httpClient *http.Client
}

func NewAuth(st *store.Store, al *audit.Log, clientID, clientSecret, redirectURI, botToken, guildID, signingKey, testToken string, production bool) *Auth {
	return &Auth{
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURI:  redirectURI,
		botToken:     botToken,
		guildID:      guildID,
		signingKey:   []byte(signingKey),
		testToken:    testToken,
		production:   production,
		store:        st,
		audit:        al,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}
}

// LoginURL builds the Discord authorization-code URL.
func (a *Auth) LoginURL() string {
	q := url.Values{}
	q.Set("client_id", a.clientID)
	q.Set("redirect_uri", a.redirectURI)
	q.Set("response_type", "code")
	q.Set("scope", "identify")
	return discordAPIBase + "/oauth2/authorize?" + q.Encode()
}

type discordTokenResponse struct {
	AccessToken string `json:"access_token"`
}

type discordUserResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// Exchange trades an OAuth code for a Discord user and mints a signed
// session token carrying that identity.
func (a *Auth) Exchange(ctx context.Context, code string) (*models.User, string, error) {
	if a.clientID == "" || a.clientSecret == "" {
		return nil, "", fmt.Errorf("api: discord oauth is not configured")
	}

	form := url.Values{}
	form.Set("client_id", a.clientID)
	form.Set("client_secret", a.clientSecret)
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", a.redirectURI)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, discordAPIBase+"/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("api: discord token exchange failed (%d): %s", resp.StatusCode, string(body))
	}

	var tok discordTokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, "", fmt.Errorf("api: failed to decode discord token response: %w", err)
	}

	discordUser, err := a.fetchDiscordUser(ctx, tok.AccessToken)
	if err != nil {
		return nil, "", err
	}

	roles := a.fetchGuildRoles(ctx, discordUser.ID)
	user := models.User{
		DiscordID: discordUser.ID,
		Username:  discordUser.Username,
		Avatar:    discordUser.Avatar,
		Roles:     roles,
		LastLogin: time.Now().UTC(),
	}
	if a.store != nil {
		if err := a.store.UpsertUser(ctx, user); err != nil {
			return nil, "", fmt.Errorf("api: failed to persist user: %w", err)
		}
	}

	session, err := a.signSession(user)
	if err != nil {
		return nil, "", err
	}
	return &user, session, nil
}

func (a *Auth) fetchDiscordUser(ctx context.Context, accessToken string) (*discordUserResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, discordAPIBase+"/users/@me", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("api: failed to fetch discord user info (%d)", resp.StatusCode)
	}

	var u discordUserResponse
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return nil, fmt.Errorf("api: failed to decode discord user response: %w", err)
	}
	return &u, nil
}

// fetchGuildRoles is best-effort: missing bot/guild config or a failed
// lookup yields no roles rather than failing the login.
func (a *Auth) fetchGuildRoles(ctx context.Context, discordID string) []string {
	if a.guildID == "" || a.botToken == "" || discordID == "" {
		return nil
	}
	reqURL := fmt.Sprintf("%s/guilds/%s/members/%s", discordAPIBase, a.guildID, discordID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("Authorization", "Bot "+a.botToken)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil
	}

	var member struct {
		Roles []string `json:"roles"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&member); err != nil {
		return nil
	}
	return member.Roles
}

func (a *Auth) signSession(user models.User) (string, error) {
	claims := sessionClaims{
		DiscordID: user.DiscordID,
		Username:  user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(sessionTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.signingKey)
}

// AuthenticatedUser resolves a bearer token to a Discord identity,
// trying the locally-signed session token first, then the configured
// test token (non-production only), then a live Discord API call.
func (a *Auth) AuthenticatedUser(ctx context.Context, bearerToken string) (*models.User, error) {
	if claims, err := a.parseSession(bearerToken); err == nil {
		return &models.User{DiscordID: claims.DiscordID, Username: claims.Username}, nil
	}

	if !a.production && a.testToken != "" && subtle.ConstantTimeCompare([]byte(bearerToken), []byte(a.testToken)) == 1 {
		return &models.User{DiscordID: "1234567890", Username: "testuser"}, nil
	}

	discordUser, err := a.fetchDiscordUser(ctx, bearerToken)
	if err != nil {
		return nil, err
	}
	return &models.User{DiscordID: discordUser.ID, Username: discordUser.Username, Avatar: discordUser.Avatar}, nil
}

func (a *Auth) parseSession(raw string) (*sessionClaims, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("api: unexpected signing method %v", t.Header["alg"])
		}
		return a.signingKey, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("api: invalid session token")
	}
	return claims, nil
}

// RequireAuth is gin middleware that resolves the bearer token to a
// user and stores it in the request context under "user", aborting with
// 401 when absent or invalid.
func (a *Auth) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or malformed Authorization header"})
			c.Abort()
			return
		}

		user, err := a.AuthenticatedUser(c.Request.Context(), parts[1])
		if err != nil {
			a.audit.Security(c.Request.Context(), "auth_failed", "", "", err.Error())
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			c.Abort()
			return
		}
		c.Set("user", user)
		c.Next()
	}
}

// OptionalAuth resolves the bearer token if present but never aborts —
// used by endpoints that vary their response for an authenticated
// caller (e.g. "can_edit") without requiring one.
func (a *Auth) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			if user, err := a.AuthenticatedUser(c.Request.Context(), parts[1]); err == nil {
				c.Set("user", user)
			}
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) *models.User {
	v, ok := c.Get("user")
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}

// IsSyntheticEnabled mirrors the teacher's env-gated feature-flag check,
// repurposed here to gate the test-webhook route outside production.
func IsSyntheticEnabled(production bool) bool {
	return !production
}
