package v1

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiezfinder/kiezfinder/internal/profile"
	"github.com/kiezfinder/kiezfinder/plugin/chatbot"
	"github.com/kiezfinder/kiezfinder/plugin/chatbot/session"
	"github.com/kiezfinder/kiezfinder/store"
	"github.com/kiezfinder/kiezfinder/store/db/sqlite"
)

func newTestAPIWithStore(t *testing.T) *echo.Echo {
	t.Helper()

	testProfile := &profile.Profile{Mode: "dev", DSN: ":memory:"}
	driver, err := sqlite.NewDB(testProfile)
	require.NoError(t, err)
	t.Cleanup(func() { _ = driver.Close() })

	_, err = driver.GetDB().Exec(`
		INSERT INTO borough (name, slug, minimum_rent, tags, population, area_km2, latitude, longitude) VALUES
			('Pankow', 'pankow', 11.0, 'family,green', 410000, 103.0, 52.57, 13.4);

		INSERT INTO neighborhood (borough_slug, name, slug, rent_price, crime_rate, foreign_population_pct, infrastructure_score, latitude, longitude) VALUES
			('pankow', 'Prenzlauer Berg', 'prenzlauer-berg', 13.0, 3.2, 20.0, 9.0, 52.54, 13.42);
	`)
	require.NoError(t, err)

	sessions := session.NewMemoryStore()
	resolver := chatbot.NewResolver(chatbot.Config{
		Knowledge: &chatbot.KnowledgeStore{},
		Sessions:  sessions,
	})

	svc := NewAPIV1Service(testProfile, resolver, sessions, store.New(driver, testProfile))
	e := echo.New()
	svc.Register(e)
	return e
}

func get(e *echo.Echo, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestNeighborhoodEndpoints(t *testing.T) {
	e := newTestAPIWithStore(t)

	t.Run("ListBoroughs", func(t *testing.T) {
		rec := get(e, "/api/v1/boroughs")
		require.Equal(t, http.StatusOK, rec.Code)

		var boroughs []*store.Borough
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &boroughs))
		require.Len(t, boroughs, 1)
		assert.Equal(t, "Pankow", boroughs[0].Name)
		assert.Equal(t, []string{"family", "green"}, boroughs[0].Tags)
	})

	t.Run("GetBoroughBySlug", func(t *testing.T) {
		rec := get(e, "/api/v1/boroughs/pankow")
		require.Equal(t, http.StatusOK, rec.Code)

		var borough store.Borough
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &borough))
		assert.Equal(t, "Pankow", borough.Name)
	})

	t.Run("UnknownBoroughIs404", func(t *testing.T) {
		rec := get(e, "/api/v1/boroughs/atlantis")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("ListNeighborhoodsFiltered", func(t *testing.T) {
		rec := get(e, "/api/v1/neighborhoods?borough=pankow&max_rent=14")
		require.Equal(t, http.StatusOK, rec.Code)

		var neighborhoods []*store.Neighborhood
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &neighborhoods))
		require.Len(t, neighborhoods, 1)
		assert.Equal(t, "Prenzlauer Berg", neighborhoods[0].Name)
	})

	t.Run("BadMaxRentIs400", func(t *testing.T) {
		rec := get(e, "/api/v1/neighborhoods?max_rent=cheap")
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var body errorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "INVALID_ARGUMENT", body.Code)
	})

	t.Run("GetNeighborhoodBySlug", func(t *testing.T) {
		rec := get(e, "/api/v1/neighborhoods/prenzlauer-berg")
		require.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestNeighborhoodEndpointsWithoutStore(t *testing.T) {
	e, _ := newTestAPI(t) // no store configured

	rec := get(e, "/api/v1/boroughs")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = get(e, "/api/v1/neighborhoods")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
