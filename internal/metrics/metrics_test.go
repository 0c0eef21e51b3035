package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushSendsCounter(t *testing.T) {
	before := testutil.ToFloat64(PushSends.WithLabelValues("sns", ResultSent))
	PushSends.WithLabelValues("sns", ResultSent).Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(PushSends.WithLabelValues("sns", ResultSent)))
}

func TestHandlerExposesCollectors(t *testing.T) {
	DeviceSyncs.WithLabelValues(OutcomeSynced).Inc()

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "rsvp_device_syncs_total")
}
