// Package session signs the location context of a published result so the
// client can hand it back on the next turn instead of the server re-parsing
// the transcript.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/paulmach/orb/geojson"

	"github.com/FACorreiaa/go-map-assistant/internal/geo"
	"github.com/FACorreiaa/go-map-assistant/internal/types"
)

var (
	ErrMissingSecret = errors.New("session: signing secret is required")
	ErrInvalidToken  = errors.New("session: invalid token")
)

type Config struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

type areaClaim struct {
	Name     string            `json:"name"`
	Geometry *geojson.Geometry `json:"geometry"`
}

// Claims is the token payload.
type Claims struct {
	Target  *types.TargetPoint `json:"target,omitempty"`
	Area    *areaClaim         `json:"area,omitempty"`
	RadiusM *float64           `json:"radius_m,omitempty"`
	jwt.RegisteredClaims
}

// Codec encodes and verifies session tokens.
type Codec struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewCodec(cfg Config) (*Codec, error) {
	if cfg.Secret == "" {
		return nil, ErrMissingSecret
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	return &Codec{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    cfg.TTL,
		now:    time.Now,
	}, nil
}

// Encode signs sc. A nil or empty context encodes to "".
func (c *Codec) Encode(sc *types.StickyContext) (string, error) {
	if sc == nil || (sc.Target == nil && sc.Area == nil) {
		return "", nil
	}

	now := c.now()
	claims := Claims{
		Target:  sc.Target,
		RadiusM: sc.RadiusM,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}
	if sc.Area != nil && geo.IsArea(sc.Area.Geometry) {
		claims.Area = &areaClaim{Name: sc.Area.Name, Geometry: geojson.NewGeometry(sc.Area.Geometry)}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Decode verifies token and returns the context it carries.
func (c *Codec) Decode(token string) (*types.StickyContext, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}

	sc := &types.StickyContext{Target: claims.Target, RadiusM: claims.RadiusM}
	if claims.Area != nil && claims.Area.Geometry != nil {
		if g := claims.Area.Geometry.Geometry(); geo.IsArea(g) {
			sc.Area = &types.GeoArea{Name: claims.Area.Name, Geometry: g}
		}
	}
	if sc.Target != nil && !geo.ValidCoordinate(sc.Target.Point) {
		return nil, fmt.Errorf("%w: target coordinate out of range", ErrInvalidToken)
	}
	if sc.Target == nil && sc.Area == nil {
		return nil, nil
	}
	return sc, nil
}
