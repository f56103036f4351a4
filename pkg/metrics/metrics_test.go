package metrics

import (
	"bytes"
	"errors"
	"io"
	"log"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	p, err := New(reg)
	require.NoError(t, err)

	p.CommandHandled("configure")
	p.CommandHandled("configure")
	p.CommandHandled("info")
	assert.Equal(t, float64(2), testutil.ToFloat64(p.commands.WithLabelValues("configure")))
	assert.Equal(t, float64(1), testutil.ToFloat64(p.commands.WithLabelValues("info")))

	p.CommandRejected(errors.New("bad rate"))
	assert.Equal(t, float64(1), testutil.ToFloat64(p.rejected))

	p.SampleEmitted(3)
	p.SampleEmitted(2)
	assert.Equal(t, float64(2), testutil.ToFloat64(p.lines))
	assert.Equal(t, float64(5), testutil.ToFloat64(p.values))

	p.ReadFailed(26, errors.New("timeout"))
	assert.Equal(t, float64(1), testutil.ToFloat64(p.readErrors.WithLabelValues("26")))

	p.StateChanged(true, 50, 2)
	assert.Equal(t, float64(1), testutil.ToFloat64(p.running))
	assert.Equal(t, float64(50), testutil.ToFloat64(p.rate))
	assert.Equal(t, float64(2), testutil.ToFloat64(p.enabled))

	p.StateChanged(false, 50, 0)
	assert.Equal(t, float64(0), testutil.ToFloat64(p.running))
	assert.Equal(t, float64(0), testutil.ToFloat64(p.enabled))
}

func TestReadFailed_CountsWithoutLogging(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	p, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	p.ReadFailed(3, errors.New("timeout"))
	p.ReadFailed(3, errors.New("timeout"))
	assert.Equal(t, float64(2), testutil.ToFloat64(p.readErrors.WithLabelValues("3")))
	assert.Empty(t, buf.String())
}

func TestNew_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)

	_, err = New(reg)
	assert.Error(t, err)
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	p, err := New(reg)
	require.NoError(t, err)
	p.SampleEmitted(4)

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "tesseract_sample_lines_total 1")
	assert.Contains(t, string(body), "tesseract_sample_values_total 4")
}
