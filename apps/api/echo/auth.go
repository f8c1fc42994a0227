package echoapi

import (
	"context"
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	googleAuthIDTokenVerifier "github.com/futurenda/google-auth-id-token-verifier"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

var (
	jwtContextKey  = "userToken"
	contextUserKey = "user"
)

func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    conf.SecretKey,
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    jwtContextKey,
		Claims:        new(Claims),
	}
}

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	Email        string `json:"email,omitempty"`
	Name         string `json:"name,omitempty"`
	Role         string `json:"role,omitempty"`
}

func GetUserClaims(conf *core.Config, usr user.User, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	var oriat int64
	if len(origIat) > 0 {
		oriat = origIat[0]
	} else {
		oriat = nownix
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   usr.ID,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Email:        usr.Email,
		Name:         usr.Name,
		Role:         usr.Role,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(middleware.AlgorithmHS256)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(conf.SecretKey)
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(jwtContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextUser(ctx echo.Context, svc user.Service, clms ...Claims) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}

	var claims Claims
	var err error
	if len(clms) > 0 {
		claims = clms[0]
	} else {
		claims, err = getContextClaims(ctx)
		if err != nil {
			return user.User{}, errors.Wrap(err, "getting context claims")
		}
	}

	usr, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return user.User{}, errUnauthorized
		}
		return user.User{}, errors.Wrap(err, "finding user by ID")
	}
	ctx.Set(contextUserKey, usr)
	return usr, nil
}

// IdentityVerifier checks an identity provider token and extracts the
// verified profile.
type IdentityVerifier interface {
	Verify(ctx context.Context, idToken string) (user.Identity, error)
}

type googleVerifier struct {
	clientID string
}

var _ IdentityVerifier = (*googleVerifier)(nil)

func NewGoogleVerifier(conf *core.Config) IdentityVerifier {
	return &googleVerifier{clientID: conf.GoogleClientID}
}

func (gv *googleVerifier) Verify(ctx context.Context, idToken string) (user.Identity, error) {
	v := googleAuthIDTokenVerifier.Verifier{}
	if err := v.VerifyIDToken(idToken, []string{gv.clientID}); err != nil {
		return user.Identity{}, errAuthenticationFailed
	}
	claimSet, err := googleAuthIDTokenVerifier.Decode(idToken)
	if err != nil {
		return user.Identity{}, errors.Wrap(err, "decoding ID token")
	}
	return identityFromClaims(claimSet), nil
}

// identityFromClaims maps a verified Google claim set to an Identity.
// Google may omit the profile photo; generate an initials avatar then.
func identityFromClaims(cs *googleAuthIDTokenVerifier.ClaimSet) user.Identity {
	picture := cs.Picture
	if picture == "" {
		picture = user.AvatarURL(cs.Name)
	}
	return user.Identity{
		ExternalID: cs.Sub,
		Email:      cs.Email,
		Name:       cs.Name,
		Picture:    picture,
	}
}

type authApi struct {
	opts *Options
}

func registerAuthAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := authApi{opts: opts}

	ag := g.Group("/auth")
	ag.POST("/google", api.google)
	ag.POST("/token-refresh", api.refreshToken, jwt)
}

// Handlers

func (api *authApi) google(ctx echo.Context) error {
	var data GoogleLoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GoogleLoginRequest")
	}
	if err := data.Validate(api.opts.Validate); err != nil {
		return err
	}

	ident, err := api.opts.Verifier.Verify(ctx.Request().Context(), data.IDToken)
	if err != nil {
		return err
	}

	usr, err := api.opts.UserSvc.Sync(ctx.Request().Context(), ident)
	if err != nil {
		return errors.Wrap(err, "syncing user")
	}

	token, err := GenerateToken(api.opts.Conf, GetUserClaims(api.opts.Conf, usr))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, User: usr})
}

func (api *authApi) refreshToken(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	usr, err := getContextUser(ctx, api.opts.UserSvc, claims)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(api.opts.Conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return errRefreshExpired
	}

	token, err := GenerateToken(api.opts.Conf, GetUserClaims(api.opts.Conf, usr, claims.OrigIssuedAt))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, User: usr})
}
