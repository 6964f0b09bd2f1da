package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nikand.dev/go/fuzz"
	"nikand.dev/go/fuzz/cover"
	"nikand.dev/go/fuzz/harness"
)

func newService(t *testing.T) *Service {
	t.Helper()

	c := cover.New(8, 8)
	r := harness.NewRunner(c)

	target := func(d *fuzz.Limited) error {
		n, err := d.Uint8()
		if err != nil {
			return err
		}

		for i := 0; i < int(n); i++ {
			c.Hit(3)
		}

		return nil
	}

	r.Exec(context.Background(), target, []byte{2})
	r.Exec(context.Background(), target, []byte{5})
	r.Exec(context.Background(), target, nil)

	return New(r)
}

func TestStats(t *testing.T) {
	s := newService(t)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stats", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var st harness.Stats

	err := json.Unmarshal(w.Body.Bytes(), &st)
	require.NoError(t, err)

	assert.Equal(t, int64(3), st.Execs)
	assert.Equal(t, int64(2), st.OK)
	assert.Equal(t, int64(1), st.Discards)
	assert.Equal(t, 1, st.Edges)
}

func TestCover(t *testing.T) {
	s := newService(t)
	h := s.Handler()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/cover", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"size":8,"edges":[{"id":3,"count":5}]}`, w.Body.String())
	assert.Equal(t, "1", w.Header().Get("X-Edges"))

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/cover?format=raw", nil))

	require.Equal(t, http.StatusOK, w.Code)

	cnt, _, err := cover.ParseDump(w.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 5, 0, 0, 0, 0}, cnt)
}

func TestTargets(t *testing.T) {
	harness.Register("web_test_target", func(d *fuzz.Limited) error { return nil })

	s := newService(t)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/targets", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var names []string

	err := json.Unmarshal(w.Body.Bytes(), &names)
	require.NoError(t, err)

	assert.Contains(t, names, "web_test_target")
}
