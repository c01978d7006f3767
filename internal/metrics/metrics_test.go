package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

// One test, one Registry: promauto registers into the default Prometheus
// registerer, so a second NewRegistry call in this process would panic on
// duplicate collector names.
func TestRegistry(t *testing.T) {
	r := NewRegistry()

	r.SetQueueDepth(5)
	r.IncCommand("insert")
	r.IncCommand("insert")

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	require.Contains(t, rec.Body.String(), "dmxmixer_actor_commands_processed_total")
	require.Contains(t, rec.Body.String(), "dmxmixer_actor_queue_depth 5")
}
