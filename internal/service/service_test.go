package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/udogan/url-shortener/internal/cache"
	"github.com/udogan/url-shortener/internal/database"
	"github.com/udogan/url-shortener/internal/models"
)

type MockURLRepository struct {
	mock.Mock
}

func (r *MockURLRepository) Create(ctx context.Context, shortCode, originalURL string) (*models.URL, error) {
	args := r.Called(ctx, shortCode, originalURL)
	url, _ := args.Get(0).(*models.URL)
	return url, args.Error(1)
}

func (r *MockURLRepository) GetByShortCode(ctx context.Context, shortCode string) (*models.URL, error) {
	args := r.Called(ctx, shortCode)
	url, _ := args.Get(0).(*models.URL)
	return url, args.Error(1)
}

func (r *MockURLRepository) GetByOriginalURL(ctx context.Context, originalURL string) (*models.URL, error) {
	args := r.Called(ctx, originalURL)
	url, _ := args.Get(0).(*models.URL)
	return url, args.Error(1)
}

func (r *MockURLRepository) RegisterClick(ctx context.Context, shortCode string) (*models.URL, error) {
	args := r.Called(ctx, shortCode)
	url, _ := args.Get(0).(*models.URL)
	return url, args.Error(1)
}

func (r *MockURLRepository) UpdateStatus(ctx context.Context, shortCode string, status models.Status) (*models.URL, error) {
	args := r.Called(ctx, shortCode, status)
	url, _ := args.Get(0).(*models.URL)
	return url, args.Error(1)
}

type MockURLCache struct {
	mock.Mock
}

func (c *MockURLCache) Get(ctx context.Context, shortCode string) (*models.URL, error) {
	args := c.Called(ctx, shortCode)
	url, _ := args.Get(0).(*models.URL)
	return url, args.Error(1)
}

func (c *MockURLCache) Set(ctx context.Context, url *models.URL) error {
	args := c.Called(ctx, url)
	return args.Error(0)
}

func (c *MockURLCache) Delete(ctx context.Context, shortCode string) error {
	args := c.Called(ctx, shortCode)
	return args.Error(0)
}

type URLServiceTestSuite struct {
	suite.Suite
	errUnknown   error
	urlRepoMock  *MockURLRepository
	urlCacheMock *MockURLCache
	svc          *URLService
}

func (suite *URLServiceTestSuite) SetupSuite() {
	suite.errUnknown = errors.New("unknown error")
}

func (suite *URLServiceTestSuite) SetupSubTest() {
	suite.urlRepoMock = new(MockURLRepository)
	suite.urlCacheMock = new(MockURLCache)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	suite.svc = NewURLService(suite.urlRepoMock, suite.urlCacheMock, logger)
}

func (suite *URLServiceTestSuite) TearDownSubTest() {
	suite.urlRepoMock.AssertExpectations(suite.T())
	suite.urlCacheMock.AssertExpectations(suite.T())
}

func (suite *URLServiceTestSuite) TestShortenURL() {
	suite.Run("existing original url returned unchanged", func() {
		existing := &models.URL{
			ShortCode:   "abc_1234",
			OriginalURL: "https://example.com",
			ClickCount:  42,
			Status:      models.StatusActive,
		}

		suite.urlRepoMock.
			On("GetByOriginalURL", context.Background(), "https://example.com").
			Once().
			Return(existing, nil)
		suite.urlCacheMock.
			On("Set", context.Background(), existing).
			Once().
			Return(nil)

		url, err := suite.svc.ShortenURL(context.Background(), "https://example.com")

		suite.NoError(err)
		suite.NotNil(url)
		suite.Equal("abc_1234", url.ShortCode)
		suite.Equal(int64(42), url.ClickCount)
		suite.urlRepoMock.AssertNotCalled(suite.T(), "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	suite.Run("lookup error", func() {
		suite.urlRepoMock.
			On("GetByOriginalURL", context.Background(), "https://example.com").
			Once().
			Return(nil, suite.errUnknown)

		url, err := suite.svc.ShortenURL(context.Background(), "https://example.com")

		suite.Error(err)
		suite.ErrorIs(err, suite.errUnknown)
		suite.Nil(url)
	})

	suite.Run("maximum retries error", func() {
		suite.urlRepoMock.
			On("GetByOriginalURL", context.Background(), "https://example.com").
			Once().
			Return(nil, database.ErrURLNotFound)
		suite.urlRepoMock.
			On("Create", context.Background(), mock.Anything, "https://example.com").
			Times(5).
			Return(nil, database.ErrShortCodeExists)

		url, err := suite.svc.ShortenURL(context.Background(), "https://example.com")

		suite.Error(err)
		suite.ErrorIs(err, ErrMaxRetriesExceeded)
		suite.Nil(url)
	})

	suite.Run("collision then success", func() {
		created := &models.URL{
			ShortCode:   "abc_1234",
			OriginalURL: "https://example.com",
			Status:      models.StatusActive,
		}

		suite.urlRepoMock.
			On("GetByOriginalURL", context.Background(), "https://example.com").
			Once().
			Return(nil, database.ErrURLNotFound)
		suite.urlRepoMock.
			On("Create", context.Background(), mock.Anything, "https://example.com").
			Once().
			Return(nil, database.ErrShortCodeExists)
		suite.urlRepoMock.
			On("Create", context.Background(), mock.Anything, "https://example.com").
			Once().
			Return(created, nil)
		suite.urlCacheMock.
			On("Set", context.Background(), created).
			Once().
			Return(nil)

		url, err := suite.svc.ShortenURL(context.Background(), "https://example.com")

		suite.NoError(err)
		suite.NotNil(url)
		suite.Equal("abc_1234", url.ShortCode)
		suite.urlRepoMock.AssertNumberOfCalls(suite.T(), "Create", 2)
	})

	suite.Run("lost creation race returns winner", func() {
		winner := &models.URL{
			ShortCode:   "winner12",
			OriginalURL: "https://example.com",
			Status:      models.StatusActive,
		}

		suite.urlRepoMock.
			On("GetByOriginalURL", context.Background(), "https://example.com").
			Once().
			Return(nil, database.ErrURLNotFound)
		suite.urlRepoMock.
			On("Create", context.Background(), mock.Anything, "https://example.com").
			Once().
			Return(nil, database.ErrOriginalURLExists)
		suite.urlRepoMock.
			On("GetByOriginalURL", context.Background(), "https://example.com").
			Once().
			Return(winner, nil)
		suite.urlCacheMock.
			On("Set", context.Background(), winner).
			Once().
			Return(nil)

		url, err := suite.svc.ShortenURL(context.Background(), "https://example.com")

		suite.NoError(err)
		suite.NotNil(url)
		suite.Equal("winner12", url.ShortCode)
	})

	suite.Run("unknown error", func() {
		suite.urlRepoMock.
			On("GetByOriginalURL", context.Background(), "https://example.com").
			Once().
			Return(nil, database.ErrURLNotFound)
		suite.urlRepoMock.
			On("Create", context.Background(), mock.Anything, "https://example.com").
			Once().
			Return(nil, suite.errUnknown)

		url, err := suite.svc.ShortenURL(context.Background(), "https://example.com")

		suite.Error(err)
		suite.ErrorIs(err, suite.errUnknown)
		suite.Nil(url)
	})

	suite.Run("cache write failure does not fail creation", func() {
		created := &models.URL{
			ShortCode:   "abc_1234",
			OriginalURL: "https://example.com",
			Status:      models.StatusActive,
		}

		suite.urlRepoMock.
			On("GetByOriginalURL", context.Background(), "https://example.com").
			Once().
			Return(nil, database.ErrURLNotFound)
		suite.urlRepoMock.
			On("Create", context.Background(), mock.Anything, "https://example.com").
			Once().
			Return(created, nil)
		suite.urlCacheMock.
			On("Set", context.Background(), created).
			Once().
			Return(suite.errUnknown)

		url, err := suite.svc.ShortenURL(context.Background(), "https://example.com")

		suite.NoError(err)
		suite.NotNil(url)
	})
}

func (suite *URLServiceTestSuite) TestResolveShortCode() {
	suite.Run("cache hit skips store", func() {
		cached := &models.URL{
			ShortCode:   "abc_1234",
			OriginalURL: "https://example.com",
			Status:      models.StatusActive,
		}

		suite.urlCacheMock.
			On("Get", context.Background(), "abc_1234").
			Once().
			Return(cached, nil)

		url, err := suite.svc.ResolveShortCode(context.Background(), "abc_1234")

		suite.NoError(err)
		suite.NotNil(url)
		suite.Equal("https://example.com", url.OriginalURL)
		suite.urlRepoMock.AssertNotCalled(suite.T(), "GetByShortCode", mock.Anything, mock.Anything)
	})

	suite.Run("cache miss backfills cache", func() {
		stored := &models.URL{
			ShortCode:   "abc_1234",
			OriginalURL: "https://example.com",
			Status:      models.StatusActive,
		}

		suite.urlCacheMock.
			On("Get", context.Background(), "abc_1234").
			Once().
			Return(nil, cache.ErrCacheMiss)
		suite.urlRepoMock.
			On("GetByShortCode", context.Background(), "abc_1234").
			Once().
			Return(stored, nil)
		suite.urlCacheMock.
			On("Set", context.Background(), stored).
			Once().
			Return(nil)

		url, err := suite.svc.ResolveShortCode(context.Background(), "abc_1234")

		suite.NoError(err)
		suite.NotNil(url)
		suite.Equal("https://example.com", url.OriginalURL)
	})

	suite.Run("cache failure degrades to store read", func() {
		stored := &models.URL{
			ShortCode:   "abc_1234",
			OriginalURL: "https://example.com",
			Status:      models.StatusActive,
		}

		suite.urlCacheMock.
			On("Get", context.Background(), "abc_1234").
			Once().
			Return(nil, errors.New("connection refused"))
		suite.urlRepoMock.
			On("GetByShortCode", context.Background(), "abc_1234").
			Once().
			Return(stored, nil)
		suite.urlCacheMock.
			On("Set", context.Background(), stored).
			Once().
			Return(errors.New("connection refused"))

		url, err := suite.svc.ResolveShortCode(context.Background(), "abc_1234")

		suite.NoError(err)
		suite.NotNil(url)
	})

	suite.Run("url not found", func() {
		suite.urlCacheMock.
			On("Get", context.Background(), "abc_1234").
			Once().
			Return(nil, cache.ErrCacheMiss)
		suite.urlRepoMock.
			On("GetByShortCode", context.Background(), "abc_1234").
			Once().
			Return(nil, database.ErrURLNotFound)

		url, err := suite.svc.ResolveShortCode(context.Background(), "abc_1234")

		suite.Error(err)
		suite.ErrorIs(err, database.ErrURLNotFound)
		suite.Nil(url)
	})
}

func (suite *URLServiceTestSuite) TestRegisterClick() {
	suite.Run("url not found", func() {
		suite.urlRepoMock.
			On("RegisterClick", context.Background(), "abc_1234").
			Once().
			Return(nil, database.ErrURLNotFound)

		url, err := suite.svc.RegisterClick(context.Background(), "abc_1234")

		suite.Error(err)
		suite.ErrorIs(err, database.ErrURLNotFound)
		suite.Nil(url)
		suite.urlCacheMock.AssertNotCalled(suite.T(), "Set", mock.Anything, mock.Anything)
	})

	suite.Run("success refreshes cache", func() {
		clicked := &models.URL{
			ShortCode:   "abc_1234",
			OriginalURL: "https://example.com",
			ClickCount:  3,
			Status:      models.StatusActive,
		}

		suite.urlRepoMock.
			On("RegisterClick", context.Background(), "abc_1234").
			Once().
			Return(clicked, nil)
		suite.urlCacheMock.
			On("Set", context.Background(), clicked).
			Once().
			Return(nil)

		url, err := suite.svc.RegisterClick(context.Background(), "abc_1234")

		suite.NoError(err)
		suite.NotNil(url)
		suite.Equal(int64(3), url.ClickCount)
	})
}

func (suite *URLServiceTestSuite) TestUpdateStatus() {
	suite.Run("url not found", func() {
		suite.urlRepoMock.
			On("UpdateStatus", context.Background(), "abc_1234", models.StatusInactive).
			Once().
			Return(nil, database.ErrURLNotFound)

		url, err := suite.svc.UpdateStatus(context.Background(), "abc_1234", models.StatusInactive)

		suite.Error(err)
		suite.ErrorIs(err, database.ErrURLNotFound)
		suite.Nil(url)
	})

	suite.Run("success refreshes cache", func() {
		updated := &models.URL{
			ShortCode:   "abc_1234",
			OriginalURL: "https://example.com",
			Status:      models.StatusInactive,
		}

		suite.urlRepoMock.
			On("UpdateStatus", context.Background(), "abc_1234", models.StatusInactive).
			Once().
			Return(updated, nil)
		suite.urlCacheMock.
			On("Set", context.Background(), updated).
			Once().
			Return(nil)

		url, err := suite.svc.UpdateStatus(context.Background(), "abc_1234", models.StatusInactive)

		suite.NoError(err)
		suite.NotNil(url)
		suite.Equal(models.StatusInactive, url.Status)
	})
}

func TestURLService(t *testing.T) {
	suite.Run(t, new(URLServiceTestSuite))
}

func TestGenerateShortCode(t *testing.T) {
	codeFormat := regexp.MustCompile(`^[A-Za-z0-9_-]{8}$`)

	t.Run("format", func(t *testing.T) {
		for i := 0; i < 100; i++ {
			code := generateShortCode("https://example.com/very/long/path")
			if !codeFormat.MatchString(code) {
				t.Fatalf("generated code %q does not match %s", code, codeFormat)
			}
		}
	})

	t.Run("salted candidates differ", func(t *testing.T) {
		seen := make(map[string]struct{})
		for i := 0; i < 100; i++ {
			code := generateShortCode("https://example.com")
			if _, ok := seen[code]; ok {
				t.Fatalf("duplicate candidate %q across salted generations", code)
			}
			seen[code] = struct{}{}
		}
	})
}
