package echoapi

import (
	"sort"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/davidobonyano/yano-school-next-sub001/core"
)

// Roles
const (
	// Admin Roles
	RoleAdmin       = "admin:"
	RoleAdminBursar = "admin:bursar"

	// Student Roles
	RoleStudent = "student:"
)

var (
	AllRoles = []string{RoleAdmin, RoleAdminBursar, RoleStudent}

	contextTokenKey = "userToken"

	errStudentIDRequired = errors.New("student tokens need a student ID")
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	Username  string   `json:"username,omitempty"`
	StudentID string   `json:"student_id,omitempty"`
	IsStudent bool     `json:"is_student,omitempty"` // -> STUDENT PORTAL
	IsAdmin   bool     `json:"is_admin,omitempty"`   // -> ADMIN PORTAL
	Roles     []string `json:"roles,omitempty"`
}

func (c Claims) actor() core.Actor {
	return core.Actor{ID: c.Subject, Username: c.Username}
}

func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
}

func ValidRole(role string) bool {
	for _, r := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

// NewClaims builds the claims of a token issued to subject.
// studentID links a student token to the ledger; admins may leave it empty.
func NewClaims(conf *core.Config, subject, username, studentID string, roles ...string) (*Claims, error) {
	now := time.Now()

	claims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   subject,
			Audience:  "Fees",
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Username:  username,
		StudentID: core.CleanString(studentID),
	}
	for _, role := range core.CleanStrings(roles) {
		if !ValidRole(role) {
			return nil, core.NewFieldError("role", "unknown role "+role)
		}
		if strings.HasPrefix(role, RoleAdmin) {
			claims.IsAdmin = true
		}
		if role == RoleStudent {
			claims.IsStudent = true
		}
		claims.Roles = append(claims.Roles, role)
	}
	if claims.IsStudent && claims.StudentID == "" {
		return nil, errStudentIDRequired
	}
	return claims, nil
}

// GenerateToken generates a signed JWT token string representing the Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(middleware.AlgorithmHS256)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func contextHasAnyRole(ctx echo.Context, roles []string) bool {
	if len(roles) == 0 {
		return true
	}
	if claims, err := getContextClaims(ctx); err == nil {
		sort.Strings(claims.Roles)
		for _, role := range roles {
			if i := sort.SearchStrings(claims.Roles, role); i < len(claims.Roles) {
				if match := claims.Roles[i]; role == match {
					return true
				}
			}
		}
	}
	return false
}
