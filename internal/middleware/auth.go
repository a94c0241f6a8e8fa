package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"chat-core/internal/identity"
	"chat-core/internal/services"
)

const credentialsKey = "credentials"

func reject(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"status": code, "error": msg})
}

// ExtractCredentials reads X-Username and the bearer token. Websocket clients that
// cannot set headers may pass them as username and token query parameters.
func ExtractCredentials(r *http.Request) (services.Credentials, bool) {
	creds := services.Credentials{
		Username: strings.TrimSpace(r.Header.Get("X-Username")),
	}
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return services.Credentials{}, false
		}
		creds.Token = strings.TrimSpace(parts[1])
	}
	if creds.Username == "" {
		creds.Username = r.URL.Query().Get("username")
	}
	if creds.Token == "" {
		creds.Token = r.URL.Query().Get("token")
	}
	return creds, creds.Username != "" && creds.Token != ""
}

// Credentials stores the caller's credentials in the context without verifying them;
// the services authenticate each call.
func Credentials() gin.HandlerFunc {
	return func(c *gin.Context) {
		creds, ok := ExtractCredentials(c.Request)
		if !ok {
			reject(c, http.StatusUnauthorized, "AUTH_INVALID", "missing credentials")
			return
		}
		c.Set(credentialsKey, creds)
		c.Next()
	}
}

// RequireAuth verifies the credentials against the identity gate before the handler runs.
func RequireAuth(gate identity.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		creds, ok := ExtractCredentials(c.Request)
		if !ok {
			reject(c, http.StatusUnauthorized, "AUTH_INVALID", "missing credentials")
			return
		}
		err := services.Authenticate(c.Request.Context(), gate, creds)
		switch {
		case errors.Is(err, services.ErrAuthInvalid):
			reject(c, http.StatusUnauthorized, "AUTH_INVALID", services.ErrAuthInvalid.Error())
			return
		case err != nil:
			reject(c, http.StatusBadGateway, "IDENTITY_UNAVAILABLE", services.ErrIdentityUnavailable.Error())
			return
		}
		c.Set(credentialsKey, creds)
		c.Next()
	}
}

// CredentialsFrom returns the credentials stored by Credentials or RequireAuth.
func CredentialsFrom(c *gin.Context) services.Credentials {
	if val, ok := c.Get(credentialsKey); ok {
		if creds, ok := val.(services.Credentials); ok {
			return creds
		}
	}
	return services.Credentials{}
}
