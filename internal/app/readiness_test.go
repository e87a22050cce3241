package app_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorstack/essay-tutor/internal/app"
	"github.com/tutorstack/essay-tutor/internal/config"
)

type pingOK struct{}

func (pingOK) Ping(context.Context) error { return nil }

func TestBuildReadinessChecks_NilDependencies(t *testing.T) {
	t.Parallel()
	dbCheck, redisCheck, kafkaCheck, tikaCheck := app.BuildReadinessChecks(config.Config{}, nil, nil, nil)
	ctx := context.Background()
	assert.ErrorContains(t, dbCheck(ctx), "not configured")
	assert.ErrorContains(t, redisCheck(ctx), "not configured")
	assert.ErrorContains(t, kafkaCheck(ctx), "not configured")
	assert.ErrorContains(t, tikaCheck(ctx), "not configured")
}

func TestBuildReadinessChecks_Pingers(t *testing.T) {
	t.Parallel()
	dbCheck, _, kafkaCheck, _ := app.BuildReadinessChecks(config.Config{}, pingOK{}, nil, pingOK{})
	require.NoError(t, dbCheck(context.Background()))
	require.NoError(t, kafkaCheck(context.Background()))
}

func TestBuildReadinessChecks_Tika(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/version" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, _, _, tikaCheck := app.BuildReadinessChecks(config.Config{TikaURL: srv.URL}, nil, nil, nil)
	require.NoError(t, tikaCheck(context.Background()))

	_, _, _, badCheck := app.BuildReadinessChecks(config.Config{TikaURL: srv.URL + "/missing"}, nil, nil, nil)
	assert.Error(t, badCheck(context.Background()))
}
