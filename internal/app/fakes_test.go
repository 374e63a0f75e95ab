package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"myapp-api/internal/app/apptest"
	"myapp-api/internal/logging"
	"myapp-api/internal/model"
	"myapp-api/internal/pkg/jwtutil"
	"myapp-api/internal/pkg/password"
)

var errStoreDown = errors.New("store unavailable")

type testClock struct {
	t time.Time
}

func (c *testClock) Now() time.Time { return c.t }

type fixture struct {
	store  *apptest.Store
	cache  *apptest.Cache
	events *apptest.Publisher
	blobs  *apptest.Blobs
	clock  *testClock
	codec  *jwtutil.Codec
	auth   *AuthService
	users  *UserService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:  apptest.NewStore(),
		cache:  apptest.NewCache(),
		events: &apptest.Publisher{},
		blobs:  &apptest.Blobs{},
		clock:  &testClock{t: time.Now().Truncate(time.Second)},
	}
	codec, err := jwtutil.NewCodec("test-secret", "HS256", 30*time.Minute, jwtutil.WithClock(f.clock.Now))
	require.NoError(t, err)
	f.codec = codec

	hasher := password.NewHasher(bcrypt.MinCost)
	log := logging.Discard()
	f.auth = NewAuthService(f.store, f.cache, hasher, codec, 30*time.Minute, log)
	f.users = NewUserService(f.store, hasher, f.blobs, f.cache, f.events, 5*1024*1024, log)
	return f
}

func (f *fixture) register(t *testing.T, email, username string) *model.User {
	t.Helper()
	u, err := f.users.Register(context.Background(), RegisterInput{Email: email, Username: username, Password: "pw12345678"})
	require.NoError(t, err)
	return u
}

// interleavedLookup runs between once after the store read and before the
// caller gets to cache the result.
type interleavedLookup struct {
	store   *apptest.Store
	between func()
}

func (l *interleavedLookup) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := l.store.GetByEmail(ctx, email)
	if l.between != nil {
		l.between()
		l.between = nil
	}
	return user, err
}

func (f *fixture) authWithLookup(lookup AccountLookup) *AuthService {
	return NewAuthService(lookup, f.cache, password.NewHasher(bcrypt.MinCost), f.codec, 30*time.Minute, logging.Discard())
}
