package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jkaberg/saj-hass/internal/saj"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler(t *testing.T) {
	c := NewCollector("192.168.1.50")
	c.Observe(saj.Result{Outcome: saj.Success}, wirelessSnapshot())
	srv := httptest.NewServer(Handler(NewRegistry(c)))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `saj_sensor_value{host="192.168.1.50",key="p-ac",name="current_power",unit="W"} 1500`)
	assert.Contains(t, string(body), "go_goroutines")
}
