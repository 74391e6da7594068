package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-progress/internal/http/response"
	"github.com/yungbote/neurobridge-progress/internal/platform/ctxutil"
	"github.com/yungbote/neurobridge-progress/internal/platform/logger"
)

// LearnerParam is the route parameter LearnerAuth matches the token subject against.
const LearnerParam = "learnerId"

// LearnerAuth verifies HS256 bearer tokens minted by the auth service. The
// subject must be the learner named in the route. An empty secret disables
// verification so local and test deployments can run without an issuer.
type LearnerAuth struct {
	log    *logger.Logger
	secret []byte
}

func NewLearnerAuth(log *logger.Logger, secret string) *LearnerAuth {
	return &LearnerAuth{
		log:    log.With("middleware", "LearnerAuth"),
		secret: []byte(strings.TrimSpace(secret)),
	}
}

func (a *LearnerAuth) Enabled() bool { return len(a.secret) > 0 }

func (a *LearnerAuth) RequireLearner() gin.HandlerFunc {
	return func(c *gin.Context) {
		routeLearner, err := uuid.Parse(c.Param(LearnerParam))
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "validation", errors.New("invalid learner id"))
			c.Abort()
			return
		}
		if !a.Enabled() {
			c.Request = c.Request.WithContext(ctxutil.WithRequestData(c.Request.Context(), &ctxutil.RequestData{LearnerID: routeLearner}))
			c.Next()
			return
		}
		tokenString := bearerToken(c)
		if tokenString == "" {
			response.RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("missing or invalid token"))
			c.Abort()
			return
		}
		subject, err := a.subject(tokenString)
		if err != nil {
			a.log.Debug("token rejected", "error", err)
			response.RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("missing or invalid token"))
			c.Abort()
			return
		}
		if subject != routeLearner {
			response.RespondError(c, http.StatusForbidden, "forbidden", errors.New("token does not belong to this learner"))
			c.Abort()
			return
		}
		c.Request = c.Request.WithContext(ctxutil.WithRequestData(c.Request.Context(), &ctxutil.RequestData{
			TokenString: tokenString,
			LearnerID:   subject,
		}))
		c.Next()
	}
}

func (a *LearnerAuth) subject(tokenString string) (uuid.UUID, error) {
	claims := &jwt.RegisteredClaims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	tok, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	if !tok.Valid {
		return uuid.Nil, errors.New("invalid token")
	}
	return uuid.Parse(claims.Subject)
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}
