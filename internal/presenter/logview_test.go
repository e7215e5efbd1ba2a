package presenter

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/alanyoungcy/polyconsole/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestLogViewReportsTransitions(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	v := NewLogView(logger)
	p := New(v, Options{})

	snap := sampleSnapshot()
	snap.TradeSeq = domain.Some(1)
	p.Present(snap)
	p.Present(snap)

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, `"msg":"run state"`))
	assert.Equal(t, 1, strings.Count(out, `"msg":"trade closed"`))
	assert.Contains(t, out, `"label":"T1"`)
	assert.Contains(t, out, `"balance":"1002.68"`)
	assert.Equal(t, "RUNNING", v.Badge().Text)
	assert.Equal(t, "2.68", v.Field(FieldPnLTotal))
	assert.Contains(t, v.Summary(), "slug=btc-updown-15m-1700000000")
}

func TestLogViewBackendError(t *testing.T) {
	var buf bytes.Buffer
	v := NewLogView(slog.New(slog.NewJSONHandler(&buf, nil)))

	Render(v, domain.Snapshot{Status: "error", Error: "boom"})
	Render(v, domain.Snapshot{Status: "error", Error: "boom"})

	assert.Equal(t, 1, strings.Count(buf.String(), `"msg":"backend error"`))
	assert.Equal(t, "ERROR", v.Badge().Text)
}
