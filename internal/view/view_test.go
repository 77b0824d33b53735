package view

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type page struct {
	Title    string
	Username string
	Role     string
	Caps     map[string]bool
	Error    string
	Notice   string
	Data     interface{}
}

func TestRender_EscapesAndNavigates(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	var buf bytes.Buffer
	err = r.Render(&buf, "crypto.html", page{
		Title:    "Text encryption",
		Username: "alice",
		Role:     "user",
		Caps:     map[string]bool{"crypto:use": true},
		Data: struct {
			Encrypted     string
			Decrypted     string
			ShowDecrypted bool
		}{Decrypted: "<script>", ShowDecrypted: true},
	}, nil)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `<output id="decrypted">&lt;script&gt;</output>`)
	assert.Contains(t, out, `href="/crypto"`)
	assert.NotContains(t, out, `href="/audit"`)
}

func TestRender_UnknownTemplate(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	assert.Error(t, r.Render(&bytes.Buffer{}, "missing.html", nil, nil))
}

func TestFuncs(t *testing.T) {
	empty := ""
	value := "x"
	id := uint(7)

	assert.Equal(t, "-", deref(nil))
	assert.Equal(t, "-", deref(&empty))
	assert.Equal(t, "x", deref(&value))
	assert.Equal(t, "-", fmtUint(nil))
	assert.Equal(t, "7", fmtUint(&id))
	assert.Equal(t, "2024-03-01 12:30:00", fmtTime(time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)))
}
